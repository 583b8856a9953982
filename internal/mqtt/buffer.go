package mqtt

import "log"

// outboxMsg stores a serialized MQTT message for replay after reconnection.
type outboxMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO holding publishes made while disconnected.
// When full, the oldest message is overwritten. Not safe for concurrent use;
// the caller must synchronize.
type outbox struct {
	buf      []outboxMsg
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{buf: make([]outboxMsg, capacity)}
}

func (o *outbox) push(msg outboxMsg) {
	capacity := len(o.buf)
	if o.count == capacity {
		if !o.overflow {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", capacity)
			o.overflow = true
		}
		o.buf[o.head] = msg
		o.head = (o.head + 1) % capacity
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % capacity
	o.count++
}

// drain returns buffered messages oldest first and empties the outbox.
func (o *outbox) drain() []outboxMsg {
	if o.count == 0 {
		return nil
	}

	capacity := len(o.buf)
	out := make([]outboxMsg, o.count)
	start := (o.head - o.count + capacity) % capacity
	for i := range out {
		out[i] = o.buf[(start+i)%capacity]
	}

	o.count = 0
	o.head = 0
	o.overflow = false
	return out
}

func (o *outbox) len() int {
	return o.count
}
