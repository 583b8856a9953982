//go:build !linux

package gpio

import "errors"

// RealOutputEnable is not available on non-Linux platforms.
type RealOutputEnable struct{}

// NewRealOutputEnable returns an error on non-Linux platforms.
func NewRealOutputEnable(chipName string, pin int) (*RealOutputEnable, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetEnabled is not implemented on non-Linux platforms.
func (r *RealOutputEnable) SetEnabled(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealOutputEnable) Close() error {
	return nil
}
