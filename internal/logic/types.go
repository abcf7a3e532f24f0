// Package logic contains pure business logic for switch edge tracking.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the debounced level of the switch.
type State string

const (
	StateHigh State = "HIGH"
	StateLow  State = "LOW"
)

// EventType represents a debounced edge.
type EventType string

const (
	EventRose EventType = "ROSE"
	EventFell EventType = "FELL"
)

// Event represents an edge to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
}

// Edges is the query side of a debouncer, valid after its latest update.
type Edges interface {
	Value() bool
	Rose() bool
	Fell() bool
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Rose int
	Fell int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     State
	Counts    EventCounts
}
