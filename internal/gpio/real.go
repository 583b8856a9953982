//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutputEnable drives /OE through the Linux GPIO character device.
type RealOutputEnable struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealOutputEnable requests pin on chip as an output. The line starts high
// so the LEDs stay dark until the controllers are programmed.
func NewRealOutputEnable(chipName string, pin int) (*RealOutputEnable, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("pca9634d-oe"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request OE pin %d: %w", pin, err)
	}

	return &RealOutputEnable{chip: chip, line: line}, nil
}

// SetEnabled drives /OE. The line is active low.
func (r *RealOutputEnable) SetEnabled(on bool) error {
	v := 1
	if on {
		v = 0
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set OE pin: %w", err)
	}
	return nil
}

// Close drives /OE high, then hands the pin back as an input with pull-up so
// the chips stay disabled while nothing owns the line.
func (r *RealOutputEnable) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(1); err != nil {
			errs = append(errs, fmt.Errorf("disable OE pin: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure OE pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close OE pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
