package pca9634

import (
	"fmt"
	"math"
)

// Channel is one output of a Controller. It holds no state of its own.
type Channel struct {
	parent *Controller
	index  int
}

// Index returns the channel number (0-7).
func (ch *Channel) Index() int {
	return ch.index
}

// SetValue sets the normalized intensity x. The duty becomes round(x*256):
// 0 turns the output off and 1 turns it fully on. Values outside [0,1] are clamped.
func (ch *Channel) SetValue(x float64) error {
	if ch == nil || ch.parent == nil || ch.parent.closed {
		return ErrClosed
	}
	if math.IsNaN(x) {
		return fmt.Errorf("%w: NaN", ErrInvalidValue)
	}
	ch.parent.setChannelValue(ch.index, DutyFor(x))
	return nil
}

// Duty returns the duty currently stored for this channel.
func (ch *Channel) Duty() uint16 {
	return ch.parent.duties[ch.index]
}

// DutyFor converts a normalized intensity to a duty value in [0,MaxDuty].
func DutyFor(x float64) uint16 {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	if x >= 1 {
		return MaxDuty
	}
	return uint16(math.Round(x * MaxDuty))
}
