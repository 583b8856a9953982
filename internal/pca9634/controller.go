// Package pca9634 drives the NXP PCA9634 8-channel I2C PWM LED controller.
//
// A Controller owns one chip: its mode configuration, the duty value of every
// channel and the two group registers, and a dirty flag. Channel setters only
// record state; Flush, called once per tick, serializes everything into a
// single 12-byte auto-increment write. Controllers are not safe for concurrent
// use; all calls are expected from one loop.
package pca9634

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/pca9634d/internal/i2c"
)

var sleep = time.Sleep

const (
	modeWriteAttempts = 10
	wakeupDelay       = 500 * time.Microsecond
)

var (
	// ErrFailed is returned once a device has hit a fatal setup error.
	ErrFailed = errors.New("pca9634: device failed")
	// ErrClosed is returned when a controller (or one of its channels) is used after Close.
	ErrClosed = errors.New("pca9634: controller closed")
	// ErrInvalidChannel is returned for channel indices outside 0-7.
	ErrInvalidChannel = errors.New("pca9634: invalid channel")
	// ErrInvalidValue is returned for NaN intensities.
	ErrInvalidValue = errors.New("pca9634: invalid value")
)

// OutNE selects the output state while /OE is held high.
type OutNE byte

const (
	OutNELow   OutNE = Mode2OutNELow
	OutNEDrive OutNE = Mode2OutNEDrv // 1 with totem pole, high-impedance with open drain
	OutNEHighZ OutNE = Mode2OutNEHighZ
)

// Options configures MODE1 and MODE2.
type Options struct {
	Inverted    bool  // INVRT
	TotemPole   bool  // OUTDRV; open drain when false
	ChangeOnAck bool  // OCH; outputs change on STOP when false
	GroupBlink  bool  // DMBLNK; group dimming when false
	OutNE       OutNE // OUTNE1:0
	Mode1       byte  // extra MODE1 bits; ALLCALL is always forced on
}

func (o Options) mode2() byte {
	var m byte
	if o.Inverted {
		m |= Mode2Invert
	}
	if o.TotemPole {
		m |= Mode2TotemPole
	}
	if o.ChangeOnAck {
		m |= Mode2ChangeOnAck
	}
	if o.GroupBlink {
		m |= Mode2GroupBlink
	}
	m |= byte(o.OutNE) & 0x03
	return m
}

// State is a point-in-time copy of a controller, safe to keep after the call.
type State struct {
	Address        uint16
	Mode1          byte
	Mode2          byte
	Initialized    bool
	Failed         bool
	Degraded       bool
	Dirty          bool
	Duties         [NumChannels]uint16
	GroupPWM       byte
	GroupFrequency byte
	GroupMembers   [NumChannels]bool
	Frame          Frame // last frame written successfully
	Flushes        uint64
	FlushErrors    uint64
	LastError      string
}

// Controller drives one PCA9634.
type Controller struct {
	bus   *BusContext
	dev   *i2c.Dev
	mode1 byte
	mode2 byte

	duties  [numSlots]uint16
	members [NumChannels]bool
	dirty   bool

	initialized bool
	failed      bool
	degraded    bool
	closed      bool

	frame       Frame
	flushes     uint64
	flushErrors uint64
	lastErr     error
}

// New creates a controller for the chip at addr. Nothing is written until Init.
func New(bus *BusContext, addr uint16, opts Options) *Controller {
	return &Controller{
		bus:   bus,
		dev:   i2c.NewDev(bus.Bus(), addr),
		mode1: opts.Mode1,
		mode2: opts.mode2(),
		dirty: true,
	}
}

// Address returns the chip's I2C address.
func (c *Controller) Address() uint16 {
	return c.dev.Addr()
}

// Failed reports whether the device hit a fatal setup error.
func (c *Controller) Failed() bool {
	return c.failed
}

// Degraded reports whether the last flush failed. It is cleared by the next
// successful flush.
func (c *Controller) Degraded() bool {
	return c.degraded
}

// Dirty reports whether state is waiting to be flushed.
func (c *Controller) Dirty() bool {
	return c.dirty
}

// Init resets the bus (once per BusContext), programs MODE1/MODE2 and pushes
// the current channel state. Errors returned from Init are fatal: the device
// is marked failed and never touched again.
func (c *Controller) Init() error {
	if c.closed {
		return ErrClosed
	}
	if c.failed {
		return ErrFailed
	}
	log.Printf("pca9634: setting up device at 0x%02X", c.Address())

	if !c.bus.ResetDone() {
		log.Printf("pca9634: resetting devices on bus")
		if err := c.bus.reset(); err != nil {
			return c.markFailed(fmt.Errorf("software reset: %w", err))
		}
	}

	var lastErr error
	for attempt := 1; attempt <= modeWriteAttempts; attempt++ {
		if err := c.writeModes(); err != nil {
			lastErr = err
			continue
		}
		if attempt > 1 {
			log.Printf("pca9634: 0x%02X mode registers written after %d attempts", c.Address(), attempt)
		}
		sleep(wakeupDelay)
		c.initialized = true
		c.dirty = true
		// A failed first push only degrades the device; the next tick retries it.
		_ = c.Flush()
		return nil
	}

	return c.markFailed(fmt.Errorf("mode registers not written after %d attempts: %w", modeWriteAttempts, lastErr))
}

func (c *Controller) writeModes() error {
	if err := c.dev.WriteReg(RegMode1, c.mode1|Mode1AllCall); err != nil {
		return fmt.Errorf("write MODE1: %w", err)
	}
	if err := c.dev.WriteReg(RegMode2, c.mode2); err != nil {
		return fmt.Errorf("write MODE2: %w", err)
	}
	return nil
}

func (c *Controller) markFailed(cause error) error {
	c.failed = true
	c.lastErr = cause
	log.Printf("pca9634: setting up device at 0x%02X failed: %v", c.Address(), cause)
	return fmt.Errorf("%w: 0x%02X: %v", ErrFailed, c.Address(), cause)
}

// Flush writes all channel state in one transaction if anything changed since
// the last successful write. A write error marks the device degraded and keeps
// the state dirty so the same data goes out on the next call.
func (c *Controller) Flush() error {
	if !c.dirty || !c.initialized || c.failed || c.closed {
		return nil
	}

	frame := encodeFrame(&c.duties, &c.members)
	if err := c.dev.WriteRegs(AutoIncAll|RegLED0, frame[:]); err != nil {
		c.flushErrors++
		c.lastErr = err
		if !c.degraded {
			log.Printf("pca9634: 0x%02X update failed, retrying next tick: %v", c.Address(), err)
		}
		c.degraded = true
		return fmt.Errorf("pca9634: 0x%02X update: %w", c.Address(), err)
	}

	if c.degraded {
		log.Printf("pca9634: 0x%02X update recovered", c.Address())
	}
	c.degraded = false
	c.dirty = false
	c.lastErr = nil
	c.frame = frame
	c.flushes++
	return nil
}

// setChannelValue stores a duty for slot (0-7 channels, 8 GRPPWM, 9 GRPFREQ).
func (c *Controller) setChannelValue(slot int, value uint16) {
	if value > MaxDuty {
		value = MaxDuty
	}
	if c.duties[slot] != value {
		c.dirty = true
	}
	c.duties[slot] = value
}

// SetGroupPWM sets the GRPPWM register (group duty cycle, or blink duty in blink mode).
func (c *Controller) SetGroupPWM(v byte) error {
	if c.closed {
		return ErrClosed
	}
	c.setChannelValue(slotGrpPWM, uint16(v))
	return nil
}

// SetGroupFrequency sets the GRPFREQ register (blink period in blink mode).
func (c *Controller) SetGroupFrequency(v byte) error {
	if c.closed {
		return ErrClosed
	}
	c.setChannelValue(slotGrpFreq, uint16(v))
	return nil
}

// RegisterChannel records whether channel index is a group member and returns
// a Channel bound to this controller.
func (c *Controller) RegisterChannel(index int, groupMember bool) (*Channel, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if index < 0 || index >= NumChannels {
		return nil, fmt.Errorf("%w: %d (want 0-%d)", ErrInvalidChannel, index, NumChannels-1)
	}
	if c.members[index] != groupMember {
		c.dirty = true
	}
	c.members[index] = groupMember
	return &Channel{parent: c, index: index}, nil
}

// Close ends the controller's lifetime. Channels bound to it reject further
// writes. Nothing is sent to the chip.
func (c *Controller) Close() {
	c.closed = true
}

// DumpConfig logs the controller configuration.
func (c *Controller) DumpConfig() {
	log.Printf("pca9634:")
	log.Printf("  address: 0x%02X", c.Address())
	log.Printf("  mode1: 0x%02X", c.mode1|Mode1AllCall)
	log.Printf("  mode2: 0x%02X", c.mode2)
	for ch, member := range c.members {
		if member {
			log.Printf("  channel %d: group member", ch)
		}
	}
	if c.failed {
		log.Printf("  setting up pca9634 failed: %v", c.lastErr)
	}
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	s := State{
		Address:        c.Address(),
		Mode1:          c.mode1 | Mode1AllCall,
		Mode2:          c.mode2,
		Initialized:    c.initialized,
		Failed:         c.failed,
		Degraded:       c.degraded,
		Dirty:          c.dirty,
		GroupPWM:       byte(c.duties[slotGrpPWM]),
		GroupFrequency: byte(c.duties[slotGrpFreq]),
		GroupMembers:   c.members,
		Frame:          c.frame,
		Flushes:        c.flushes,
		FlushErrors:    c.flushErrors,
	}
	copy(s.Duties[:], c.duties[:NumChannels])
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
