package mqtt

// FakeClient records published events and lets tests inject commands.
type FakeClient struct {
	// StateEvents contains all state events that were published.
	StateEvents []StateEvent

	// StatePayloads contains the JSON payloads for state events.
	StatePayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishStateError, if set, will be returned by PublishState.
	PublishStateError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	cmds chan Command
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{cmds: make(chan Command, commandQueueLen)}
}

// Inject queues a command as if it arrived from the broker.
func (f *FakeClient) Inject(cmd Command) {
	f.cmds <- cmd
}

// Commands delivers injected commands.
func (f *FakeClient) Commands() <-chan Command {
	return f.cmds
}

// PublishState records the state event.
func (f *FakeClient) PublishState(event StateEvent) error {
	if f.PublishStateError != nil {
		return f.PublishStateError
	}

	payload, err := FormatStatePayload(event)
	if err != nil {
		return err
	}
	f.StateEvents = append(f.StateEvents, event)
	f.StatePayloads = append(f.StatePayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakeClient) Reset() {
	f.StateEvents = nil
	f.StatePayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.PublishStateError = nil
	f.PublishSystemError = nil
	f.Closed = false
	f.Connected = false
}
