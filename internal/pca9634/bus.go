package pca9634

import "github.com/sweeney/pca9634d/internal/i2c"

// BusContext is the state shared by every controller on one physical bus.
//
// The software reset is a broadcast to ResetAddress, so it must run once per
// bus no matter how many chips sit on it. Controllers sharing a bus must share
// a BusContext. Like the controllers, it is only used from the tick loop.
type BusContext struct {
	bus       i2c.Bus
	resetDone bool
}

// NewBusContext wraps bus.
func NewBusContext(bus i2c.Bus) *BusContext {
	return &BusContext{bus: bus}
}

// Bus returns the underlying transport.
func (b *BusContext) Bus() i2c.Bus {
	return b.bus
}

// ResetDone reports whether the broadcast software reset has been sent.
func (b *BusContext) ResetDone() bool {
	return b.resetDone
}

// reset sends the software reset sequence unless it already went out.
func (b *BusContext) reset() error {
	if b.resetDone {
		return nil
	}
	if err := i2c.NewDev(b.bus, ResetAddress).Write(resetSequence[:]); err != nil {
		return err
	}
	b.resetDone = true
	return nil
}
