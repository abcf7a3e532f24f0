// Command switch-sensor debounces a GPIO switch and publishes its edges to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/switch-sensor/internal/config"
	"github.com/sweeney/switch-sensor/internal/debounce"
	"github.com/sweeney/switch-sensor/internal/gpio"
	"github.com/sweeney/switch-sensor/internal/logic"
	"github.com/sweeney/switch-sensor/internal/mqtt"
	"github.com/sweeney/switch-sensor/internal/status"
	"github.com/sweeney/switch-sensor/internal/web"
)

func main() {
	cfg, printState, err := loadConfig(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig parses the command line. Settings come from -config if given,
// otherwise the defaults; flags that were set explicitly override either.
func loadConfig(args []string) (*config.Config, bool, error) {
	fs := flag.NewFlagSet("switch-sensor", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML settings file (explicit flags override it)")
	chip := fs.String("chip", gpio.DefaultChip, "GPIO chip name")
	pin := fs.Int("pin", gpio.DefaultPin, "GPIO line offset (BCM number on a Pi)")
	pull := fs.String("pull", gpio.PullUp.String(), "Line bias: up, down or none")
	activeLow := fs.Bool("active-low", false, "Invert the line so a switch to ground reads high")
	poll := fs.Duration("poll", config.DefaultPoll, "Debouncer update interval")
	interval := fs.Duration("interval", debounce.DefaultInterval, "Debounce settle time")
	broker := fs.String("broker", config.DefaultBroker, "MQTT broker address")
	clientID := fs.String("client-id", "", "MQTT client ID (empty generates one)")
	topicPrefix := fs.String("topic-prefix", mqtt.DefaultTopicPrefix, "MQTT topic prefix")
	heartbeat := fs.Duration("heartbeat", config.DefaultHeartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", config.DefaultHTTP, "HTTP status address (empty to disable)")
	printState := fs.Bool("print-state", false, "Print current state and exit")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, false, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.Chip = *chip
		case "pin":
			cfg.Pin = *pin
		case "pull":
			cfg.Pull = *pull
		case "active-low":
			cfg.ActiveLow = *activeLow
		case "poll":
			cfg.Poll = *poll
		case "interval":
			v := *interval
			cfg.Interval = &v
		case "broker":
			cfg.Broker = *broker
		case "client-id":
			cfg.ClientID = *clientID
		case "topic-prefix":
			cfg.TopicPrefix = *topicPrefix
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP = *httpAddr
		}
	})

	if err := config.Validate(cfg); err != nil {
		return nil, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *printState, nil
}

func run(cfg *config.Config, printState bool) error {
	// Initialize GPIO
	reader, err := gpio.NewRealReader(cfg.Chip, cfg.Pin, cfg.PullMode(), cfg.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	// Print state mode
	if printState {
		v, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("%s:%d: %s\n", cfg.Chip, cfg.Pin, stateString(v))
		return nil
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		TopicPrefix: cfg.TopicPrefix,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        cfg.Chip,
		Pin:         cfg.Pin,
		Pull:        cfg.PullMode().String(),
		ActiveLow:   cfg.ActiveLow,
		PollMs:      cfg.Poll.Milliseconds(),
		IntervalMs:  cfg.DebounceInterval().Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTP,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

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

	log.Printf("started: line=%s:%d pull=%s active_low=%v poll=%v interval=%v broker=%s heartbeat=%v",
		cfg.Chip, cfg.Pin, cfg.PullMode(), cfg.ActiveLow, cfg.Poll, cfg.DebounceInterval(), cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(reader, publisher, publisher, tracker, cfg.DebounceOptions(), cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// runLoop owns the debouncer: one clock read and one Update per tick.
// STARTUP is published once the debouncer is seeded, so its snapshot carries
// the switch state. tracker and mqttStatus may be nil.
func runLoop(reader gpio.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, opts []debounce.Option, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()

	// The debouncer sees the same instant as the rest of the tick.
	current := startTime
	opts = append(opts[:len(opts):len(opts)], debounce.WithClock(func() time.Time { return current }))

	db, err := gpio.NewDebouncer(reader, opts...)
	if err != nil {
		return err
	}
	detector := logic.NewDetector(db.Value(), startTime)

	startupEvent := mqtt.SystemEvent{
		Timestamp: startTime,
		Event:     "STARTUP",
		Retained:  true,
	}
	if tracker != nil {
		tracker.Update(detector.CurrentState(), detector.EventCountsSnapshot())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		startupEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "STARTUP", "")
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event (state=%s)", detector.CurrentState())
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
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			current = now()
			if err := db.Update(); err != nil {
				log.Printf("gpio read error: %v", err)
				if tracker != nil {
					tracker.RecordReadError()
				}
				continue
			}

			if event, ok := detector.Process(db, current); ok {
				log.Printf("event: %s (state=%s)", event.Type, event.State)
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if tracker != nil {
				tracker.Update(detector.CurrentState(), detector.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(current, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v state=%s rose=%d fell=%d",
					hbData.Uptime, hbData.State, hbData.Counts.Rose, hbData.Counts.Fell)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
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

func stateString(high bool) string {
	if high {
		return string(logic.StateHigh)
	}
	return string(logic.StateLow)
}
