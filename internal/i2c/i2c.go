// Package i2c provides byte-level I2C transfers with hardware abstraction.
// The real implementation uses the Linux /dev/i2c-N character device.
// The fake implementation allows testing without hardware.
package i2c

import "errors"

// ErrNilDevice is returned when a transfer is attempted on an unbound Dev.
var ErrNilDevice = errors.New("i2c: device is nil")

// Bus performs transfers on one physical I2C bus.
type Bus interface {
	// Tx writes w and then reads into r (repeated start) at the 7-bit address addr.
	// Either slice may be empty.
	Tx(addr uint16, w, r []byte) error

	// Close releases the bus.
	Close() error
}

// Dev is a device at a fixed 7-bit address on a Bus.
type Dev struct {
	bus  Bus
	addr uint16
}

// NewDev binds bus to addr.
func NewDev(bus Bus, addr uint16) *Dev {
	return &Dev{bus: bus, addr: addr}
}

// Addr returns the device address.
func (d *Dev) Addr() uint16 {
	return d.addr
}

// Write sends p as a single raw write transaction.
func (d *Dev) Write(p []byte) error {
	if d == nil || d.bus == nil {
		return ErrNilDevice
	}
	return d.bus.Tx(d.addr, p, nil)
}

// WriteReg writes a single register.
func (d *Dev) WriteReg(reg, value byte) error {
	return d.Write([]byte{reg, value})
}

// WriteRegs writes p starting at reg in one transaction. Whether the device
// auto-increments the register pointer is up to the caller's reg encoding.
func (d *Dev) WriteRegs(reg byte, p []byte) error {
	buf := make([]byte, 0, len(p)+1)
	buf = append(buf, reg)
	buf = append(buf, p...)
	return d.Write(buf)
}

// ReadReg reads len(dst) bytes starting at reg.
func (d *Dev) ReadReg(reg byte, dst []byte) error {
	if d == nil || d.bus == nil {
		return ErrNilDevice
	}
	return d.bus.Tx(d.addr, []byte{reg}, dst)
}
