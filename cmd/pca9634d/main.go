// Command pca9634d drives PCA9634 LED controllers on an I2C bus from MQTT commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/pca9634d/internal/config"
	"github.com/sweeney/pca9634d/internal/gpio"
	"github.com/sweeney/pca9634d/internal/i2c"
	"github.com/sweeney/pca9634d/internal/lights"
	"github.com/sweeney/pca9634d/internal/mqtt"
	"github.com/sweeney/pca9634d/internal/status"
	"github.com/sweeney/pca9634d/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/pca9634d.yaml", "Path to YAML config file")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides config, \"off\" disables)")
	wsBroker := flag.String("ws-broker", "", `MQTT websocket URL for live UI ("=broker" derives from the broker, "off" disables)`)
	printConfig := flag.Bool("print-config", false, "Print the resolved configuration and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: load config: %v", err)
	}
	applyFlags(&cfg, *broker, *httpAddr, *wsBroker)

	if *printConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags overrides config values with non-empty flags and resolves the
// websocket broker.
func applyFlags(cfg *config.Config, broker, httpAddr, wsBroker string) {
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP = ""
	default:
		cfg.HTTP = httpAddr
	}
	if wsBroker != "" {
		cfg.MQTT.WSBroker = wsBroker
	}
	cfg.MQTT.WSBroker = resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker)
}

func run(cfg config.Config) error {
	bus, err := i2c.Open(cfg.Bus)
	if err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	defer bus.Close()

	bank, err := lights.New(bus, cfg.Devices)
	if err != nil {
		return fmt.Errorf("init devices: %w", err)
	}
	defer bank.Close()

	// Failed devices are reported in status; the rest keep running.
	if failed := bank.Init(); failed > 0 {
		log.Printf("%d of %d devices failed to initialize", failed, len(cfg.Devices))
	}
	bank.DumpConfig()

	var oe gpio.OutputEnable
	if cfg.OutputEnable.Enable {
		line, err := gpio.NewRealOutputEnable(cfg.OutputEnable.Chip, cfg.OutputEnable.Pin)
		if err != nil {
			return fmt.Errorf("init output enable: %w", err)
		}
		defer line.Close()
		oe = line
	}

	// Initialize MQTT
	client := mqtt.NewRealClient(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
	defer client.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      cfg.Tick.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Bus:         cfg.Bus,
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPPort:    cfg.HTTP,
		WSBroker:    cfg.MQTT.WSBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if oe != nil {
		if err := oe.SetEnabled(true); err != nil {
			log.Printf("failed to enable outputs: %v", err)
		} else {
			tracker.SetOutputEnabled(true)
		}
	}
	tracker.Update(bank.States(), status.CommandCounts{})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: bus=%s devices=%d tick=%v broker=%s heartbeat=%v",
		cfg.Bus, len(cfg.Devices), cfg.Tick, cfg.MQTT.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(bank, client, client, oe, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// runLoop owns the bank: commands, flushes and status updates all happen on
// this goroutine. oe and tracker may be nil.
func runLoop(bank *lights.Bank, client mqtt.Client, mqttStatus mqtt.ConnectionStatus, oe gpio.OutputEnable, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()
	var counts status.CommandCounts
	cmds := client.Commands()

	updateTracker := func() {
		if tracker == nil {
			return
		}
		tracker.Update(bank.States(), counts)
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			if oe != nil {
				if err := oe.SetEnabled(false); err != nil {
					log.Printf("failed to disable outputs: %v", err)
				} else if tracker != nil {
					tracker.SetOutputEnabled(false)
				}
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				updateTracker()
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := client.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case cmd, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			duty, err := bank.Set(cmd.Device, cmd.Target, cmd.Value)
			if err != nil {
				counts.Rejected++
				log.Printf("command %s/%s=%v rejected: %v", cmd.Device, cmd.Target, cmd.Value, err)
				continue
			}
			counts.Applied++
			event := mqtt.StateEvent{
				Timestamp: now(),
				Device:    cmd.Device,
				Target:    cmd.Target,
				Value:     cmd.Value,
				Duty:      duty,
			}
			if err := client.PublishState(event); err != nil {
				log.Printf("state publish error: %v", err)
			}

		case <-tick:
			t := now()
			// Flush errors are logged by the controller on the transition to degraded.
			counts.FlushErrors += len(bank.Tick())

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				log.Printf("heartbeat: applied=%d rejected=%d flush_errors=%d",
					counts.Applied, counts.Rejected, counts.FlushErrors)

				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					updateTracker()
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := client.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			updateTracker()
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the ws-broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "" and "off" disable.
func resolveWSBroker(ws, broker string) string {
	if ws == "" || ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
