// Package debounce filters bounce out of a single polled binary input.
// This package has NO hardware dependencies: the raw reading comes from a
// caller-supplied SampleFunc and time is injectable via WithClock.
package debounce

import "time"

// DefaultInterval is the settle time used when no interval is configured.
const DefaultInterval = 10 * time.Millisecond

// SampleFunc returns the current raw reading of the monitored signal.
type SampleFunc func() (bool, error)

// Predicate adapts an infallible reading function to a SampleFunc.
func Predicate(f func() bool) SampleFunc {
	return func() (bool, error) {
		return f(), nil
	}
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithInterval sets the minimum time a raw reading must stay unchanged
// before it is accepted. Zero or negative values are not rejected: they
// accept the first matching sample.
func WithInterval(d time.Duration) Option {
	return func(db *Debouncer) {
		db.interval = d
	}
}

// WithClock replaces the monotonic clock. Readings must never go backwards.
func WithClock(now func() time.Time) Option {
	return func(db *Debouncer) {
		db.now = now
	}
}

// Debouncer tracks the stable value of a polled input.
// Not safe for concurrent use; a single polling loop should own it.
type Debouncer struct {
	sample   SampleFunc
	interval time.Duration
	now      func() time.Time

	unstable  bool      // last raw sample seen
	debounced bool      // accepted value
	changed   bool      // debounced flipped during the last Update
	previous  time.Time // when unstable last changed
}

// New creates a Debouncer seeded from one raw sample taken now.
// An error from that sample is returned as is.
func New(sample SampleFunc, opts ...Option) (*Debouncer, error) {
	d := &Debouncer{
		sample:   sample,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	initial, err := d.sample()
	if err != nil {
		return nil, err
	}
	d.unstable = initial
	d.debounced = initial

	return d, nil
}

// Update samples the input once and advances the filter.
// It must be called before the queries are meaningful for a cycle.
// A sample error is returned unmodified; the changed flag is already
// cleared at that point and no other state is touched.
func (d *Debouncer) Update() error {
	now := d.now()
	d.changed = false

	current, err := d.sample()
	if err != nil {
		return err
	}

	if current != d.unstable {
		// Any raw change restarts the settle timer.
		d.previous = now
		d.unstable = current
		return nil
	}

	if now.Sub(d.previous) >= d.interval && current != d.debounced {
		d.previous = now
		d.debounced = current
		d.changed = true
	}
	return nil
}

// Value returns the debounced value as of the last Update.
func (d *Debouncer) Value() bool {
	return d.debounced
}

// Rose reports whether the last Update moved the value from low to high.
func (d *Debouncer) Rose() bool {
	return d.debounced && d.changed
}

// Fell reports whether the last Update moved the value from high to low.
func (d *Debouncer) Fell() bool {
	return !d.debounced && d.changed
}

// Interval returns the configured settle time.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}
