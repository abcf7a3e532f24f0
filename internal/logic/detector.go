package logic

import "time"

// Detector turns debouncer edges into events and keeps running counts.
type Detector struct {
	state         State
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector starting from the debouncer's seeded value.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(initial bool, startTime time.Time) *Detector {
	return &Detector{
		state:         boolToState(initial),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process inspects the edge flags after an update and returns the event to
// emit, if any. At most one event is produced per call.
func (d *Detector) Process(e Edges, now time.Time) (Event, bool) {
	d.state = boolToState(e.Value())

	var typ EventType
	switch {
	case e.Rose():
		typ = EventRose
		d.eventCounts.Rose++
	case e.Fell():
		typ = EventFell
		d.eventCounts.Fell++
	default:
		return Event{}, false
	}

	return Event{
		Timestamp: now,
		Type:      typ,
		State:     d.state,
	}, true
}

func boolToState(b bool) State {
	if b {
		return StateHigh
	}
	return StateLow
}

// CurrentState returns the debounced state as of the last Process call.
func (d *Detector) CurrentState() State {
	return d.state
}

// EventCountsSnapshot returns a copy of the edge counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		State:     d.state,
		Counts:    d.eventCounts,
	}
}
