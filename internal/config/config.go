// Package config loads the daemon's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Reserved command targets for the group registers.
const (
	TargetGroupPWM  = "grppwm"
	TargetGroupFreq = "grpfreq"
)

const DefaultBroker = "tcp://localhost:1883"

type Config struct {
	Bus          string             `yaml:"bus"`
	Tick         time.Duration      `yaml:"tick"`
	Heartbeat    time.Duration      `yaml:"heartbeat"`
	HTTP         string             `yaml:"http"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	OutputEnable OutputEnableConfig `yaml:"output_enable"`
	Devices      []DeviceConfig     `yaml:"devices"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	WSBroker    string `yaml:"ws_broker"`
}

// OutputEnableConfig describes the GPIO line wired to the chips' /OE pins.
type OutputEnableConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Pin    int    `yaml:"pin"`
}

type DeviceConfig struct {
	Name      string          `yaml:"name"`
	Address   uint16          `yaml:"address"`
	Inverted  bool            `yaml:"inverted"`
	Structure string          `yaml:"structure"`  // opendrain | totempole
	ChangeOn  string          `yaml:"changeon"`   // stop | ack
	GroupMode string          `yaml:"group_mode"` // dimming | blinking
	OutNE     string          `yaml:"outne"`      // low | outdrv | highz
	GroupPWM  *int            `yaml:"group_pwm"`
	GroupFreq *int            `yaml:"group_freq"`
	Channels  []ChannelConfig `yaml:"channels"`
}

type ChannelConfig struct {
	Name        string  `yaml:"name"`
	Channel     int     `yaml:"channel"`
	GroupMember bool    `yaml:"groupmember"`
	Initial     float64 `yaml:"initial"`
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills unset fields and rejects invalid settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg.Bus == "" {
		cfg.Bus = "/dev/i2c-1"
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 16 * time.Millisecond
	}
	if cfg.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must be >= 0")
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = DefaultBroker
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "pca9634d"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "lighting/pca9634"
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")

	if cfg.OutputEnable.Enable {
		if cfg.OutputEnable.Chip == "" {
			cfg.OutputEnable.Chip = "gpiochip0"
		}
		if cfg.OutputEnable.Pin <= 0 {
			return fmt.Errorf("output_enable.pin is required when output_enable.enable is true")
		}
	}

	if len(cfg.Devices) == 0 {
		return fmt.Errorf("at least one device is required")
	}
	names := make(map[string]bool)
	addrs := make(map[uint16]string)
	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		if err := defaultDevice(d); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if names[d.Name] {
			return fmt.Errorf("devices[%d]: duplicate name %q", i, d.Name)
		}
		names[d.Name] = true
		if other, ok := addrs[d.Address]; ok {
			return fmt.Errorf("devices[%d]: address 0x%02X already used by %q", i, d.Address, other)
		}
		addrs[d.Address] = d.Name
	}
	return nil
}

func defaultDevice(d *DeviceConfig) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(d.Name, "/+#") {
		return fmt.Errorf("name %q must not contain MQTT topic characters", d.Name)
	}
	if d.Address == 0 || d.Address > 0x7F {
		return fmt.Errorf("address 0x%02X out of range", d.Address)
	}
	// Reserved: software reset and the power-on all-call address.
	if d.Address == 0x03 || d.Address == 0x70 {
		return fmt.Errorf("address 0x%02X is reserved", d.Address)
	}

	if err := oneOf("structure", &d.Structure, "opendrain", "opendrain", "totempole"); err != nil {
		return err
	}
	if err := oneOf("changeon", &d.ChangeOn, "stop", "stop", "ack"); err != nil {
		return err
	}
	if err := oneOf("group_mode", &d.GroupMode, "dimming", "dimming", "blinking"); err != nil {
		return err
	}
	if err := oneOf("outne", &d.OutNE, "low", "low", "outdrv", "highz"); err != nil {
		return err
	}

	// GRPPWM powers up at 0xFF; keep group members visible unless configured.
	if d.GroupPWM == nil {
		v := 255
		d.GroupPWM = &v
	}
	if d.GroupFreq == nil {
		v := 0
		d.GroupFreq = &v
	}
	if *d.GroupPWM < 0 || *d.GroupPWM > 255 {
		return fmt.Errorf("group_pwm must be 0-255")
	}
	if *d.GroupFreq < 0 || *d.GroupFreq > 255 {
		return fmt.Errorf("group_freq must be 0-255")
	}

	names := make(map[string]bool)
	used := make(map[int]bool)
	for i, ch := range d.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channels[%d]: name is required", i)
		}
		if ch.Name == TargetGroupPWM || ch.Name == TargetGroupFreq || strings.ContainsAny(ch.Name, "/+#") {
			return fmt.Errorf("channels[%d]: name %q is reserved", i, ch.Name)
		}
		if ch.Channel < 0 || ch.Channel > 7 {
			return fmt.Errorf("channels[%d]: channel %d out of range 0-7", i, ch.Channel)
		}
		if ch.Initial < 0 || ch.Initial > 1 {
			return fmt.Errorf("channels[%d]: initial must be 0-1", i)
		}
		if names[ch.Name] {
			return fmt.Errorf("channels[%d]: duplicate name %q", i, ch.Name)
		}
		if used[ch.Channel] {
			return fmt.Errorf("channels[%d]: channel %d already configured", i, ch.Channel)
		}
		names[ch.Name] = true
		used[ch.Channel] = true
	}
	return nil
}

func oneOf(field string, v *string, def string, allowed ...string) error {
	*v = strings.ToLower(strings.TrimSpace(*v))
	if *v == "" {
		*v = def
	}
	for _, a := range allowed {
		if *v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", field, strings.Join(allowed, "|"), *v)
}
