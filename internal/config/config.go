// Package config loads the switch-sensor daemon settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/switch-sensor/internal/debounce"
	"github.com/sweeney/switch-sensor/internal/gpio"
	"github.com/sweeney/switch-sensor/internal/mqtt"
)

// Config holds the daemon settings.
type Config struct {
	// Chip is the GPIO character device name.
	Chip string `yaml:"chip"`
	// Pin is the line offset on Chip.
	Pin int `yaml:"pin"`
	// Pull is the line bias: up, down or none.
	Pull string `yaml:"pull"`
	// ActiveLow inverts the line so a closed switch to ground reads high.
	ActiveLow bool `yaml:"active_low"`
	// Poll is how often the debouncer is updated.
	Poll time.Duration `yaml:"poll"`
	// Interval is the debounce settle time. Nil selects debounce.DefaultInterval.
	Interval *time.Duration `yaml:"interval"`
	// Broker is the MQTT broker URL.
	Broker string `yaml:"broker"`
	// ClientID is the MQTT client ID; empty generates one.
	ClientID string `yaml:"client_id"`
	// TopicPrefix is the root for the events and system topics.
	TopicPrefix string `yaml:"topic_prefix"`
	// Heartbeat is the heartbeat period; zero disables it.
	Heartbeat time.Duration `yaml:"heartbeat"`
	// HTTP is the status server address; empty disables it.
	HTTP string `yaml:"http"`
}

const (
	// DefaultPoll keeps several samples inside one default debounce interval.
	DefaultPoll = 2 * time.Millisecond

	// DefaultBroker is the broker used when none is configured.
	DefaultBroker = "tcp://localhost:1883"

	// DefaultHeartbeat is the default heartbeat period.
	DefaultHeartbeat = 15 * time.Minute

	// DefaultHTTP is the default status server address.
	DefaultHTTP = ":80"
)

var (
	errConfigIsNotSet = errors.New("configuration is not set")
	errPinRequired    = errors.New("pin must not be negative")
	errPollRequired   = errors.New("poll interval must be positive")
)

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Chip:        gpio.DefaultChip,
		Pin:         gpio.DefaultPin,
		Pull:        gpio.PullUp.String(),
		Poll:        DefaultPoll,
		Broker:      DefaultBroker,
		TopicPrefix: mqtt.DefaultTopicPrefix,
		Heartbeat:   DefaultHeartbeat,
		HTTP:        DefaultHTTP,
	}
}

// Load reads settings from path on top of Default and validates them.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings and fills empty optional fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Pin < 0 {
		return errPinRequired
	}

	if cfg.Poll <= 0 {
		return errPollRequired
	}

	if _, err := gpio.ParsePull(cfg.Pull); err != nil {
		return fmt.Errorf("invalid pull: %w", err)
	}

	if cfg.Chip == "" {
		cfg.Chip = gpio.DefaultChip
	}

	if cfg.Broker == "" {
		cfg.Broker = DefaultBroker
	}

	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = mqtt.DefaultTopicPrefix
	}

	return nil
}

// PullMode returns the parsed pull setting. Validate must have passed.
func (c *Config) PullMode() gpio.Pull {
	p, _ := gpio.ParsePull(c.Pull)
	return p
}

// DebounceInterval returns the configured settle time, or the default when unset.
func (c *Config) DebounceInterval() time.Duration {
	if c.Interval == nil {
		return debounce.DefaultInterval
	}
	return *c.Interval
}

// DebounceOptions returns the debouncer options implied by the settings.
// An unset interval adds no option so the debouncer applies its own default.
func (c *Config) DebounceOptions() []debounce.Option {
	if c.Interval == nil {
		return nil
	}
	return []debounce.Option{debounce.WithInterval(*c.Interval)}
}
