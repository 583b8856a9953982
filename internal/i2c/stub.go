//go:build !linux

package i2c

import "errors"

// RealBus is not available on non-Linux platforms.
type RealBus struct{}

// Open returns an error on non-Linux platforms.
func Open(path string) (*RealBus, error) {
	return nil, errors.New("i2c: not supported on this platform (requires Linux)")
}

// Path is not implemented on non-Linux platforms.
func (b *RealBus) Path() string {
	return ""
}

// Tx is not implemented on non-Linux platforms.
func (b *RealBus) Tx(addr uint16, w, r []byte) error {
	return errors.New("i2c: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *RealBus) Close() error {
	return nil
}
