// Package gpio drives the active-low /OE (output enable) line shared by the
// PCA9634 chips. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// OutputEnable controls the /OE line.
type OutputEnable interface {
	// SetEnabled drives /OE low (outputs follow the LED registers) when on is
	// true and high (outputs forced to the MODE2 OUTNE state) when false.
	SetEnabled(on bool) error

	// Close disables the outputs and releases GPIO resources.
	Close() error
}

// DefaultPinOE is the BCM pin commonly wired to /OE on Pi HATs.
const DefaultPinOE = 17
