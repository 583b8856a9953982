package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/pca9634d/internal/config"
	"github.com/sweeney/pca9634d/internal/i2c"
	"github.com/sweeney/pca9634d/internal/lights"
	"github.com/sweeney/pca9634d/internal/status"
)

func newTestServer(t *testing.T, cfg status.Config) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func defaultConfig() status.Config {
	return status.Config{
		TickMs:      16,
		HeartbeatMs: 900000,
		Bus:         "/dev/i2c-1",
		Broker:      "tcp://192.168.1.200:1883",
		TopicPrefix: "lighting/pca9634",
		HTTPPort:    ":80",
	}
}

// testBank returns an initialized bank with one device on a fake bus.
func testBank(t *testing.T) *lights.Bank {
	t.Helper()
	pwm, freq := 255, 0
	b, err := lights.New(i2c.NewFakeBus(), []config.DeviceConfig{{
		Name:      "shelf",
		Address:   0x15,
		OutNE:     "low",
		GroupPWM:  &pwm,
		GroupFreq: &freq,
		Channels: []config.ChannelConfig{
			{Name: "warm", Channel: 0, Initial: 0.5},
			{Name: "cool", Channel: 3, GroupMember: true, Initial: 1},
		},
	}})
	if err != nil {
		t.Fatalf("lights.New: %v", err)
	}
	if failed := b.Init(); failed != 0 {
		t.Fatalf("Init: %d devices failed", failed)
	}
	return b
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.Update(testBank(t).States(), status.CommandCounts{Applied: 5, Rejected: 2})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Applied != 5 || sj.Status.Counts.Rejected != 2 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Config.TickMs != 16 {
		t.Errorf("Config.TickMs: got %d, want 16", sj.Status.Config.TickMs)
	}

	if len(sj.Status.Devices) != 1 {
		t.Fatalf("Devices: got %d, want 1", len(sj.Status.Devices))
	}
	dev := sj.Status.Devices[0]
	if dev.Name != "shelf" || dev.Address != "0x15" || dev.Health != status.HealthOK {
		t.Errorf("device: got %+v", dev)
	}
	if len(dev.Channels) != 2 {
		t.Fatalf("channels: got %d, want 2", len(dev.Channels))
	}
	if dev.Channels[0].Register != 128 || dev.Channels[0].LEDOut != "INDIV" {
		t.Errorf("warm: got %+v", dev.Channels[0])
	}
	if dev.Channels[1].Register != 255 || dev.Channels[1].LEDOut != "GROUP" {
		t.Errorf("cool: got %+v", dev.Channels[1])
	}
}

func TestJSONNotReadyWithoutDevices(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Ready {
		t.Error("expected Ready=false with no devices")
	}
	if sj.Status.Devices == nil {
		t.Error("devices should encode as an empty list")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	tr.Update(testBank(t).States(), status.CommandCounts{})
	tr.SetOutputEnabled(true)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"shelf", "0x15", "warm", "50.0%", "GROUP", "enabled", "/dev/i2c-1"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(string(body), "mqtt.min.js") {
		t.Error("live script should be omitted without a websocket broker")
	}
}

func TestHTMLLiveScript(t *testing.T) {
	cfg := defaultConfig()
	cfg.WSBroker = "ws://192.168.1.200:9001"
	ts, _ := newTestServer(t, cfg)

	body := getBody(t, ts.URL+"/")
	if !strings.Contains(body, "mqtt.min.js") {
		t.Error("expected live script with websocket broker configured")
	}
	if !strings.Contains(body, "/+/+/state") {
		t.Error("expected state topic subscription in live script")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())

	body := getBody(t, ts.URL+"/index.html")
	if !strings.Contains(body, "No devices configured") {
		t.Error("expected empty device notice")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, defaultConfig())

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, defaultConfig())
	bank := testBank(t)
	tr.Update(bank.States(), status.CommandCounts{})

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Devices[0].Channels[0].Value != 0.5 {
		t.Fatalf("warm: got %v, want 0.5", sj1.Status.Devices[0].Channels[0].Value)
	}

	if _, err := bank.Set("shelf", "warm", 0); err != nil {
		t.Fatal(err)
	}
	bank.Tick()
	tr.Update(bank.States(), status.CommandCounts{Applied: 1})
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	warm := sj2.Status.Devices[0].Channels[0]
	if warm.Value != 0 || warm.LEDOut != "OFF" {
		t.Errorf("warm after update: got %+v", warm)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
