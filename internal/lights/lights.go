// Package lights assembles PCA9634 controllers and named channels from the
// daemon configuration and routes commands to them. A Bank is driven from the
// daemon's single tick loop and is not safe for concurrent use.
package lights

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/sweeney/pca9634d/internal/config"
	"github.com/sweeney/pca9634d/internal/i2c"
	"github.com/sweeney/pca9634d/internal/pca9634"
)

var (
	ErrUnknownDevice = errors.New("lights: unknown device")
	ErrUnknownTarget = errors.New("lights: unknown target")
	ErrOutOfRange    = errors.New("lights: value out of range")
)

type channel struct {
	name string
	out  *pca9634.Channel
}

type device struct {
	name     string
	ctrl     *pca9634.Controller
	channels []channel
}

// Bank is every configured device on one I2C bus.
type Bank struct {
	bus     *pca9634.BusContext
	devices []*device
	byName  map[string]*device
}

// ChannelState is the stored state of one named channel.
type ChannelState struct {
	Name        string
	Index       int
	GroupMember bool
	Duty        uint16
	Value       float64
}

// DeviceState is a named controller snapshot.
type DeviceState struct {
	Name     string
	Chip     pca9634.State
	Channels []ChannelState
}

// New builds controllers and channels for devices on bus. Configured initial
// values and group registers are stored so the first flush after Init carries them.
func New(bus i2c.Bus, devices []config.DeviceConfig) (*Bank, error) {
	b := &Bank{
		bus:    pca9634.NewBusContext(bus),
		byName: make(map[string]*device),
	}

	for _, dc := range devices {
		d := &device{name: dc.Name, ctrl: pca9634.New(b.bus, dc.Address, OptionsFor(dc))}
		for _, cc := range dc.Channels {
			out, err := d.ctrl.RegisterChannel(cc.Channel, cc.GroupMember)
			if err != nil {
				return nil, fmt.Errorf("device %s channel %s: %w", dc.Name, cc.Name, err)
			}
			if err := out.SetValue(cc.Initial); err != nil {
				return nil, fmt.Errorf("device %s channel %s: %w", dc.Name, cc.Name, err)
			}
			d.channels = append(d.channels, channel{name: cc.Name, out: out})
		}
		if dc.GroupPWM != nil {
			d.ctrl.SetGroupPWM(byte(*dc.GroupPWM))
		}
		if dc.GroupFreq != nil {
			d.ctrl.SetGroupFrequency(byte(*dc.GroupFreq))
		}
		b.devices = append(b.devices, d)
		b.byName[dc.Name] = d
	}
	return b, nil
}

// OptionsFor maps a device config onto chip mode options.
func OptionsFor(dc config.DeviceConfig) pca9634.Options {
	opts := pca9634.Options{
		Inverted:    dc.Inverted,
		TotemPole:   dc.Structure == "totempole",
		ChangeOnAck: dc.ChangeOn == "ack",
		GroupBlink:  dc.GroupMode == "blinking",
	}
	switch dc.OutNE {
	case "outdrv":
		opts.OutNE = pca9634.OutNEDrive
	case "highz":
		opts.OutNE = pca9634.OutNEHighZ
	default:
		opts.OutNE = pca9634.OutNELow
	}
	return opts
}

// Init initializes every device in config order and returns how many failed.
// A failed device stays in the bank and reports its state, but is never
// written to again.
func (b *Bank) Init() int {
	failed := 0
	for _, d := range b.devices {
		if err := d.ctrl.Init(); err != nil {
			log.Printf("lights: device %s: %v", d.name, err)
			failed++
		}
	}
	return failed
}

// DumpConfig logs the configuration of every device.
func (b *Bank) DumpConfig() {
	for _, d := range b.devices {
		log.Printf("device %s:", d.name)
		d.ctrl.DumpConfig()
		for _, ch := range d.channels {
			log.Printf("  channel %d: %s", ch.out.Index(), ch.name)
		}
	}
}

// Set stores value for target on the named device and returns the stored duty.
// Channel targets take a normalized intensity in [0,1]; the group register
// targets take an integer register value in [0,255].
func (b *Bank) Set(deviceName, target string, value float64) (uint16, error) {
	d, ok := b.byName[deviceName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceName)
	}
	if d.ctrl.Failed() {
		return 0, fmt.Errorf("device %s: %w", deviceName, pca9634.ErrFailed)
	}

	switch target {
	case config.TargetGroupPWM, config.TargetGroupFreq:
		if value < 0 || value > 255 || value != math.Trunc(value) {
			return 0, fmt.Errorf("%w: %s/%s=%v (want integer 0-255)", ErrOutOfRange, deviceName, target, value)
		}
		if target == config.TargetGroupPWM {
			return uint16(value), d.ctrl.SetGroupPWM(byte(value))
		}
		return uint16(value), d.ctrl.SetGroupFrequency(byte(value))
	}

	for _, ch := range d.channels {
		if ch.name != target {
			continue
		}
		if !(value >= 0 && value <= 1) {
			return 0, fmt.Errorf("%w: %s/%s=%v (want 0-1)", ErrOutOfRange, deviceName, target, value)
		}
		if err := ch.out.SetValue(value); err != nil {
			return 0, err
		}
		return ch.out.Duty(), nil
	}
	return 0, fmt.Errorf("%w: %s/%s", ErrUnknownTarget, deviceName, target)
}

// Tick flushes every device. Flush errors are recoverable; they are returned
// so the caller can record them, and the data is retried next tick.
func (b *Bank) Tick() []error {
	var errs []error
	for _, d := range b.devices {
		if err := d.ctrl.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", d.name, err))
		}
	}
	return errs
}

// States returns a snapshot of every device in config order.
func (b *Bank) States() []DeviceState {
	out := make([]DeviceState, 0, len(b.devices))
	for _, d := range b.devices {
		st := d.ctrl.State()
		ds := DeviceState{Name: d.name, Chip: st}
		for _, ch := range d.channels {
			duty := st.Duties[ch.out.Index()]
			ds.Channels = append(ds.Channels, ChannelState{
				Name:        ch.name,
				Index:       ch.out.Index(),
				GroupMember: st.GroupMembers[ch.out.Index()],
				Duty:        duty,
				Value:       float64(duty) / pca9634.MaxDuty,
			})
		}
		out = append(out, ds)
	}
	return out
}

// Close ends the lifetime of every controller.
func (b *Bank) Close() {
	for _, d := range b.devices {
		d.ctrl.Close()
	}
}
