package logic

import (
	"testing"
	"time"

	"github.com/sweeney/switch-sensor/internal/debounce"
)

// edges is a fixed Edges value.
type edges struct {
	value, rose, fell bool
}

func (e edges) Value() bool { return e.value }
func (e edges) Rose() bool  { return e.rose }
func (e edges) Fell() bool  { return e.fell }

var (
	steadyLow  = edges{value: false}
	steadyHigh = edges{value: true}
	rising     = edges{value: true, rose: true}
	falling    = edges{value: false, fell: true}
)

func TestNewDetector(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(true, startTime)
	if d == nil {
		t.Fatal("NewDetector returned nil")
	}
	if d.CurrentState() != StateHigh {
		t.Errorf("expected initial state HIGH, got %s", d.CurrentState())
	}
	if !d.startTime.Equal(startTime) {
		t.Errorf("expected startTime %v, got %v", startTime, d.startTime)
	}
	if !d.lastHeartbeat.Equal(startTime) {
		t.Errorf("expected lastHeartbeat %v, got %v", startTime, d.lastHeartbeat)
	}
}

func TestNoEventsForSteadyState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, now)

	for i := 0; i < 10; i++ {
		if _, ok := d.Process(steadyLow, now.Add(time.Duration(i)*10*time.Millisecond)); ok {
			t.Errorf("iteration %d: expected no event for steady state", i)
		}
	}
	if c := d.EventCountsSnapshot(); c.Rose != 0 || c.Fell != 0 {
		t.Errorf("expected zero counts, got %+v", c)
	}
}

func TestRoseEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, now)

	e, ok := d.Process(rising, now)
	if !ok {
		t.Fatal("expected event on rise")
	}
	if e.Type != EventRose {
		t.Errorf("expected ROSE, got %s", e.Type)
	}
	if e.State != StateHigh {
		t.Errorf("expected state HIGH, got %s", e.State)
	}
	if !e.Timestamp.Equal(now) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
	if d.CurrentState() != StateHigh {
		t.Errorf("expected current state HIGH, got %s", d.CurrentState())
	}
}

func TestFellEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(true, now)

	e, ok := d.Process(falling, now)
	if !ok {
		t.Fatal("expected event on fall")
	}
	if e.Type != EventFell {
		t.Errorf("expected FELL, got %s", e.Type)
	}
	if e.State != StateLow {
		t.Errorf("expected state LOW, got %s", e.State)
	}
}

func TestStateFollowsValueWithoutEdge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, now)

	if _, ok := d.Process(steadyHigh, now); ok {
		t.Error("expected no event without an edge flag")
	}
	if d.CurrentState() != StateHigh {
		t.Errorf("expected state to follow value, got %s", d.CurrentState())
	}
}

func TestEventCountsIncrement(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, now)

	seq := []edges{rising, steadyHigh, falling, steadyLow, rising, falling, rising}
	for i, e := range seq {
		d.Process(e, now.Add(time.Duration(i)*time.Second))
	}

	c := d.EventCountsSnapshot()
	if c.Rose != 3 {
		t.Errorf("expected Rose=3, got %d", c.Rose)
	}
	if c.Fell != 2 {
		t.Errorf("expected Fell=2, got %d", c.Fell)
	}
}

func TestBoolToState(t *testing.T) {
	if boolToState(true) != StateHigh {
		t.Error("boolToState(true) should be HIGH")
	}
	if boolToState(false) != StateLow {
		t.Error("boolToState(false) should be LOW")
	}
}

// TestProcessWithDebouncer drives the detector from a real debouncer.
func TestProcessWithDebouncer(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	raw := false
	db, err := debounce.New(debounce.Predicate(func() bool { return raw }),
		debounce.WithInterval(10*time.Millisecond),
		debounce.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("debounce.New: %v", err)
	}
	d := NewDetector(db.Value(), now)

	samples := []bool{true, false, true, true, true, true, false, false, false}
	var got []EventType
	for _, s := range samples {
		raw = s
		now = now.Add(5 * time.Millisecond)
		db.Update()
		if e, ok := d.Process(db, now); ok {
			got = append(got, e.Type)
		}
	}

	want := []EventType{EventRose, EventFell}
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// Heartbeat tests

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, startTime)

	if hb := d.CheckHeartbeat(startTime.Add(15*time.Minute), 0); hb != nil {
		t.Error("should not return heartbeat when interval is 0 (disabled)")
	}
	if hb := d.CheckHeartbeat(startTime.Add(15*time.Minute), -1*time.Minute); hb != nil {
		t.Error("should not return heartbeat when interval is negative")
	}
}

func TestCheckHeartbeatBeforeInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, startTime)

	if hb := d.CheckHeartbeat(startTime.Add(14*time.Minute), 15*time.Minute); hb != nil {
		t.Error("should not return heartbeat before interval")
	}
}

func TestCheckHeartbeatAtInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(true, startTime)

	checkTime := startTime.Add(15 * time.Minute)
	hb := d.CheckHeartbeat(checkTime, 15*time.Minute)
	if hb == nil {
		t.Fatal("should return heartbeat at interval")
	}
	if !hb.Timestamp.Equal(checkTime) {
		t.Errorf("expected timestamp %v, got %v", checkTime, hb.Timestamp)
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
	if hb.State != StateHigh {
		t.Errorf("expected state HIGH, got %s", hb.State)
	}
}

func TestCheckHeartbeatUpdatesLastTime(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, startTime)

	t1 := startTime.Add(15 * time.Minute)
	if hb := d.CheckHeartbeat(t1, 15*time.Minute); hb == nil {
		t.Fatal("should return first heartbeat")
	}
	if hb := d.CheckHeartbeat(t1.Add(time.Second), 15*time.Minute); hb != nil {
		t.Error("should not return heartbeat immediately after previous")
	}
	if hb := d.CheckHeartbeat(t1.Add(15*time.Minute), 15*time.Minute); hb == nil {
		t.Fatal("should return second heartbeat")
	}
}

func TestHeartbeatContainsEventCounts(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDetector(false, startTime)

	d.Process(rising, startTime.Add(time.Second))
	d.Process(falling, startTime.Add(2*time.Second))
	d.Process(rising, startTime.Add(3*time.Second))

	hb := d.CheckHeartbeat(startTime.Add(15*time.Minute), 15*time.Minute)
	if hb == nil {
		t.Fatal("should return heartbeat")
	}
	if hb.Counts.Rose != 2 {
		t.Errorf("expected Rose=2, got %d", hb.Counts.Rose)
	}
	if hb.Counts.Fell != 1 {
		t.Errorf("expected Fell=1, got %d", hb.Counts.Fell)
	}
}
