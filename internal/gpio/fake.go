package gpio

// FakeOutputEnable is a test double that records /OE changes.
type FakeOutputEnable struct {
	// Enabled is the current logical state (true = outputs on).
	Enabled bool

	// History records every SetEnabled value in order.
	History []bool

	// SetError, if set, will be returned by SetEnabled.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutputEnable creates a FakeOutputEnable with outputs disabled.
func NewFakeOutputEnable() *FakeOutputEnable {
	return &FakeOutputEnable{}
}

// SetEnabled records the requested state.
func (f *FakeOutputEnable) SetEnabled(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Enabled = on
	f.History = append(f.History, on)
	return nil
}

// Close disables outputs and marks the line closed.
func (f *FakeOutputEnable) Close() error {
	f.Enabled = false
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeOutputEnable) Reset() {
	f.Enabled = false
	f.History = nil
	f.SetError = nil
	f.Closed = false
}
