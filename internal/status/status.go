// Package status provides a thread-safe status tracker for the pca9634d daemon.
// It is written by the tick loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pca9634d/internal/lights"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	Bus         string
	Broker      string
	TopicPrefix string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// CommandCounts counts MQTT commands since startup.
type CommandCounts struct {
	Applied     int
	Rejected    int
	FlushErrors int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Devices       []lights.DeviceState
	Counts        CommandCounts
	OutputEnabled bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether every device is initialized and none has failed.
func (s Snapshot) Ready() bool {
	if len(s.Devices) == 0 {
		return false
	}
	for _, d := range s.Devices {
		if !d.Chip.Initialized || d.Chip.Failed {
			return false
		}
	}
	return true
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets device states and command counts.
// Called from runLoop on every tick. devices must not be modified afterwards.
func (t *Tracker) Update(devices []lights.DeviceState, counts CommandCounts) {
	t.mu.Lock()
	t.snap.Devices = devices
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetOutputEnabled records the state of the /OE line.
func (t *Tracker) SetOutputEnabled(enabled bool) {
	t.mu.Lock()
	t.snap.OutputEnabled = enabled
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
