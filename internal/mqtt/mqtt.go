// Package mqtt carries LED commands and state over MQTT with abstraction for testing.
//
// Topics, relative to a configurable prefix:
//
//	<prefix>/<device>/<target>/set    commands in (target: channel name, grppwm, grpfreq)
//	<prefix>/<device>/<target>/state  applied state out (retained)
//	<prefix>/system                   lifecycle events out
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "lighting/pca9634"

// ErrBadTopic is returned for topics that are not command topics under the prefix.
var ErrBadTopic = errors.New("mqtt: not a command topic")

// Client receives commands and publishes state and lifecycle events.
type Client interface {
	// Commands delivers parsed commands. Consumers must drain it from one goroutine.
	Commands() <-chan Command

	// PublishState reports the state applied for a command target.
	PublishState(event StateEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Command is a request to set one target on one device.
type Command struct {
	Device string
	Target string  // channel name, or a group register target
	Value  float64 // 0..1 for channels, 0..255 for group registers
}

// StateEvent reports the value stored for a target after a command.
type StateEvent struct {
	Timestamp time.Time
	Device    string
	Target    string
	Value     float64
	Duty      uint16
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// CommandFilter returns the subscription filter for all command topics.
func CommandFilter(prefix string) string {
	return prefix + "/+/+/set"
}

// StateTopic returns the state topic for a target.
func StateTopic(prefix, device, target string) string {
	return prefix + "/" + device + "/" + target + "/state"
}

// SystemTopic returns the lifecycle topic.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// ParseCommand decodes a command message. The payload may be a number,
// ON/OFF, or a JSON object {"value": x}.
func ParseCommand(prefix, topic string, payload []byte) (Command, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[0] == "" || parts[1] == "" {
		return Command{}, fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	v, err := parseValue(payload)
	if err != nil {
		return Command{}, fmt.Errorf("mqtt: %s: %w", topic, err)
	}
	return Command{Device: parts[0], Target: parts[1], Value: v}, nil
}

type valuePayload struct {
	Value *float64 `json:"value"`
}

func parseValue(payload []byte) (float64, error) {
	s := strings.TrimSpace(string(payload))
	switch strings.ToUpper(s) {
	case "":
		return 0, errors.New("empty payload")
	case "ON":
		return 1, nil
	case "OFF":
		return 0, nil
	}

	if strings.HasPrefix(s, "{") {
		var vp valuePayload
		if err := json.Unmarshal([]byte(s), &vp); err != nil {
			return 0, fmt.Errorf("invalid JSON payload: %w", err)
		}
		if vp.Value == nil {
			return 0, errors.New(`JSON payload has no "value"`)
		}
		return *vp.Value, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

// StatePayload is the JSON payload published on state topics.
type StatePayload struct {
	State StatePayloadInner `json:"state"`
}

// StatePayloadInner contains the state details.
type StatePayloadInner struct {
	Timestamp string  `json:"timestamp"`
	Device    string  `json:"device"`
	Target    string  `json:"target"`
	Value     float64 `json:"value"`
	Duty      uint16  `json:"duty"`
}

// FormatStatePayload creates the JSON payload for a state event.
func FormatStatePayload(event StateEvent) ([]byte, error) {
	return json.Marshal(StatePayload{
		State: StatePayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Device:    event.Device,
			Target:    event.Target,
			Value:     event.Value,
			Duty:      event.Duty,
		},
	})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
