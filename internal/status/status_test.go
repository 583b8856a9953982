package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/pca9634d/internal/lights"
	"github.com/sweeney/pca9634d/internal/pca9634"
)

func testDevices() []lights.DeviceState {
	var frame pca9634.Frame
	frame[0] = 0x80
	frame[1] = 0xFF
	frame[10] = byte(pca9634.LEDIndividual) | byte(pca9634.LEDGroup)<<2

	return []lights.DeviceState{
		{
			Name: "shelf",
			Chip: pca9634.State{
				Address:     0x15,
				Mode1:       pca9634.Mode1AllCall,
				Mode2:       pca9634.Mode2TotemPole,
				Initialized: true,
				GroupPWM:    255,
				Frame:       frame,
				Flushes:     4,
			},
			Channels: []lights.ChannelState{
				{Name: "warm", Index: 0, Duty: 128, Value: 0.5},
				{Name: "cool", Index: 1, GroupMember: true, Duty: 256, Value: 1},
			},
		},
		{
			Name: "desk",
			Chip: pca9634.State{
				Address:     0x16,
				Initialized: true,
				Degraded:    true,
				Dirty:       true,
				FlushErrors: 2,
				LastError:   "bus busy",
			},
		},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickMs: 16, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 16 {
		t.Errorf("Config.TickMs: got %d, want 16", snap.Config.TickMs)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.Ready() {
		t.Error("expected Ready=false with no devices")
	}
	if snap.MQTTConnected || snap.OutputEnabled {
		t.Error("expected MQTT and output disabled initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(testDevices(), CommandCounts{Applied: 3, Rejected: 1})

	snap := tr.Snapshot()
	if len(snap.Devices) != 2 {
		t.Fatalf("Devices: got %d, want 2", len(snap.Devices))
	}
	if snap.Devices[0].Name != "shelf" {
		t.Errorf("Devices[0]: got %q, want shelf", snap.Devices[0].Name)
	}
	if snap.Counts.Applied != 3 || snap.Counts.Rejected != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestReady(t *testing.T) {
	devs := testDevices()
	if !(Snapshot{Devices: devs}).Ready() {
		t.Error("degraded devices should still be ready")
	}

	devs[1].Chip.Failed = true
	if (Snapshot{Devices: devs}).Ready() {
		t.Error("failed device should not be ready")
	}

	devs = testDevices()
	devs[0].Chip.Initialized = false
	if (Snapshot{Devices: devs}).Ready() {
		t.Error("uninitialized device should not be ready")
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		state pca9634.State
		want  string
	}{
		{pca9634.State{Initialized: true}, HealthOK},
		{pca9634.State{Initialized: true, Degraded: true}, HealthDegraded},
		{pca9634.State{Failed: true}, HealthFailed},
		{pca9634.State{}, HealthUninitialized},
	}
	for _, tt := range tests {
		if got := Health(tt.state); got != tt.want {
			t.Errorf("Health(%+v): got %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetOutputEnabled(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetOutputEnabled(true)
	if !tr.Snapshot().OutputEnabled {
		t.Error("expected OutputEnabled=true")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(testDevices(), CommandCounts{Applied: 1})

	snap1 := tr.Snapshot()

	tr.Update(nil, CommandCounts{Applied: 2})

	if len(snap1.Devices) != 2 {
		t.Error("snapshot should be a copy; Devices was modified")
	}
	if snap1.Counts.Applied != 1 {
		t.Error("snapshot should be a copy; Counts was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Devices:       testDevices(),
		Counts:        CommandCounts{Applied: 5, Rejected: 2},
		OutputEnabled: true,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{TickMs: 16, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if !s.Ready {
		t.Error("expected Ready=true")
	}
	if !s.OutputEnabled {
		t.Error("expected OutputEnabled=true")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.Applied != 5 {
		t.Errorf("Counts.Applied: got %d, want 5", s.Counts.Applied)
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected no event/reason for web format, got %q/%q", s.Event, s.Reason)
	}

	if len(s.Devices) != 2 {
		t.Fatalf("Devices: got %d, want 2", len(s.Devices))
	}
	shelf := s.Devices[0]
	if shelf.Address != "0x15" || shelf.Health != HealthOK || shelf.Mode2 != "0x04" {
		t.Errorf("shelf: got %+v", shelf)
	}
	if len(shelf.Channels) != 2 {
		t.Fatalf("shelf channels: got %d, want 2", len(shelf.Channels))
	}
	warm, cool := shelf.Channels[0], shelf.Channels[1]
	if warm.Register != 0x80 || warm.LEDOut != "INDIV" || warm.Duty != 128 {
		t.Errorf("warm: got %+v", warm)
	}
	if cool.Register != 0xFF || cool.LEDOut != "GROUP" || !cool.GroupMember {
		t.Errorf("cool: got %+v", cool)
	}

	desk := s.Devices[1]
	if desk.Health != HealthDegraded || desk.LastError != "bus busy" || desk.FlushErrors != 2 {
		t.Errorf("desk: got %+v", desk)
	}
	if desk.Channels == nil {
		t.Error("desk channels should encode as an empty list")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Devices:       testDevices(),
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if len(parsed.Status.Devices) != 2 {
		t.Errorf("Devices: got %d, want 2", len(parsed.Status.Devices))
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(testDevices(), CommandCounts{Applied: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetOutputEnabled(i%2 == 1)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
