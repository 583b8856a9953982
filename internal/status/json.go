package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/pca9634d/internal/lights"
	"github.com/sweeney/pca9634d/internal/pca9634"
)

// Device health values reported in JSON.
const (
	HealthOK            = "OK"
	HealthDegraded      = "DEGRADED"
	HealthFailed        = "FAILED"
	HealthUninitialized = "UNINITIALIZED"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	OutputEnabled bool         `json:"output_enabled"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"command_counts"`
	Devices       []DeviceJSON `json:"devices"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of command counts.
type CountsJSON struct {
	Applied     int `json:"applied"`
	Rejected    int `json:"rejected"`
	FlushErrors int `json:"flush_errors"`
}

// DeviceJSON is the JSON representation of one controller.
type DeviceJSON struct {
	Name        string        `json:"name"`
	Address     string        `json:"address"`
	Health      string        `json:"health"`
	Dirty       bool          `json:"dirty"`
	Mode1       string        `json:"mode1"`
	Mode2       string        `json:"mode2"`
	GroupPWM    int           `json:"group_pwm"`
	GroupFreq   int           `json:"group_freq"`
	Flushes     uint64        `json:"flushes"`
	FlushErrors uint64        `json:"flush_errors"`
	LastError   string        `json:"last_error,omitempty"`
	Channels    []ChannelJSON `json:"channels"`
}

// ChannelJSON is the JSON representation of one named channel.
type ChannelJSON struct {
	Name        string  `json:"name"`
	Channel     int     `json:"channel"`
	GroupMember bool    `json:"group_member"`
	Value       float64 `json:"value"`
	Duty        int     `json:"duty"`
	Register    int     `json:"register"`
	LEDOut      string  `json:"ledout"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Bus         string `json:"bus"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPPort    string `json:"http_port"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

// Health summarizes a controller state as one of the Health* values.
func Health(s pca9634.State) string {
	switch {
	case s.Failed:
		return HealthFailed
	case !s.Initialized:
		return HealthUninitialized
	case s.Degraded:
		return HealthDegraded
	}
	return HealthOK
}

func buildDevice(d lights.DeviceState) DeviceJSON {
	dj := DeviceJSON{
		Name:        d.Name,
		Address:     fmt.Sprintf("0x%02X", d.Chip.Address),
		Health:      Health(d.Chip),
		Dirty:       d.Chip.Dirty,
		Mode1:       fmt.Sprintf("0x%02X", d.Chip.Mode1),
		Mode2:       fmt.Sprintf("0x%02X", d.Chip.Mode2),
		GroupPWM:    int(d.Chip.GroupPWM),
		GroupFreq:   int(d.Chip.GroupFrequency),
		Flushes:     d.Chip.Flushes,
		FlushErrors: d.Chip.FlushErrors,
		LastError:   d.Chip.LastError,
		Channels:    make([]ChannelJSON, 0, len(d.Channels)),
	}
	for _, ch := range d.Channels {
		// Register and LEDOUT are what the chip last accepted, not the stored value.
		dj.Channels = append(dj.Channels, ChannelJSON{
			Name:        ch.Name,
			Channel:     ch.Index,
			GroupMember: ch.GroupMember,
			Value:       ch.Value,
			Duty:        int(ch.Duty),
			Register:    int(d.Chip.Frame.Duty(ch.Index)),
			LEDOut:      d.Chip.Frame.LEDOut(ch.Index).String(),
		})
	}
	return dj
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Ready(),
		OutputEnabled: snap.OutputEnabled,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Applied:     snap.Counts.Applied,
			Rejected:    snap.Counts.Rejected,
			FlushErrors: snap.Counts.FlushErrors,
		},
		Devices: make([]DeviceJSON, 0, len(snap.Devices)),
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Bus:         snap.Config.Bus,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPPort:    snap.Config.HTTPPort,
			WSBroker:    snap.Config.WSBroker,
		},
	}
	for _, d := range snap.Devices {
		inner.Devices = append(inner.Devices, buildDevice(d))
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
