// Package gpio provides switch input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"strings"

	"github.com/sweeney/switch-sensor/internal/debounce"
)

// Reader reads the logical level of a single input line.
type Reader interface {
	// Read returns the logical level (true = active).
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Line defaults (Raspberry Pi, BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// Pull selects the line bias.
type Pull int

const (
	PullUp Pull = iota
	PullDown
	PullNone
)

// String returns the config spelling of the pull mode.
func (p Pull) String() string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	case PullNone:
		return "none"
	}
	return fmt.Sprintf("Pull(%d)", int(p))
}

// ParsePull converts "up", "down" or "none" to a Pull.
// An empty string selects PullUp.
func ParsePull(s string) (Pull, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "up":
		return PullUp, nil
	case "down":
		return PullDown, nil
	case "none", "off":
		return PullNone, nil
	}
	return PullUp, fmt.Errorf("unknown pull mode %q", s)
}

// NewDebouncer builds a debouncer that samples r once per Update.
// Read errors are passed through to the debouncer's caller.
func NewDebouncer(r Reader, opts ...debounce.Option) (*debounce.Debouncer, error) {
	d, err := debounce.New(r.Read, opts...)
	if err != nil {
		return nil, fmt.Errorf("initial read: %w", err)
	}
	return d, nil
}
