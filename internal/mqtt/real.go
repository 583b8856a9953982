package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	commandQueueLen = 64
	outboxCapacity  = 256
	publishTimeout  = 5 * time.Second
)

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client paho.Client
	prefix string
	cmds   chan Command

	mu     sync.Mutex
	outbox *outbox
}

// NewRealClient starts connecting to broker in the background. Publishes made
// before the first connection, or while reconnecting, are buffered and
// replayed once connected.
func NewRealClient(broker, clientID, prefix string) *RealClient {
	c := &RealClient{
		prefix: prefix,
		cmds:   make(chan Command, commandQueueLen),
		outbox: newOutbox(outboxCapacity),
	}

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(SystemTopic(prefix), string(will), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c.client = paho.NewClient(opts)
	c.client.Connect()
	return c
}

func (c *RealClient) onConnect(client paho.Client) {
	log.Printf("mqtt: connected")
	token := client.Subscribe(CommandFilter(c.prefix), 1, c.onMessage)
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		log.Printf("mqtt: subscribe %s: %v", CommandFilter(c.prefix), token.Error())
	}

	c.mu.Lock()
	pending := c.outbox.drain()
	c.mu.Unlock()
	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		if err := c.publish(m); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}
}

// onMessage runs on paho's goroutine; it only parses and queues.
func (c *RealClient) onMessage(_ paho.Client, msg paho.Message) {
	cmd, err := ParseCommand(c.prefix, msg.Topic(), msg.Payload())
	if err != nil {
		log.Printf("mqtt: ignoring command: %v", err)
		return
	}
	select {
	case c.cmds <- cmd:
	default:
		log.Printf("mqtt: command queue full, dropping %s/%s", cmd.Device, cmd.Target)
	}
}

// Commands delivers parsed commands.
func (c *RealClient) Commands() <-chan Command {
	return c.cmds
}

// PublishState publishes the applied state for a target (QoS 0, retained).
func (c *RealClient) PublishState(event StateEvent) error {
	payload, err := FormatStatePayload(event)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return c.send(outboxMsg{
		topic:    StateTopic(c.prefix, event.Device, event.Target),
		payload:  payload,
		qos:      0,
		retained: true,
	})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) - lifecycle events should not get lost
	return c.send(outboxMsg{
		topic:    SystemTopic(c.prefix),
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	})
}

func (c *RealClient) send(m outboxMsg) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.outbox.push(m)
		c.mu.Unlock()
		return nil
	}
	return c.publish(m)
}

func (c *RealClient) publish(m outboxMsg) error {
	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
