// Package clock supplies build timestamps.
//
// Artifact names embed the build time, so the engine reads time through the
// Clock interface and tests pin it with FakeClock.
package clock

import "time"

// StampLayout formats build timestamps in artifact names.
const StampLayout = "20060102-150405"

// Clock provides an abstraction for time operations to enable deterministic testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Stamp returns the UTC build timestamp used in artifact names.
func Stamp(c Clock) string {
	return c.Now().UTC().Format(StampLayout)
}

// RealClock implements Clock using the system time.
type RealClock struct{}

// Now returns the current system time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// FakeClock implements Clock with a fixed time for testing.
type FakeClock struct {
	current time.Time
}

// NewFakeClock creates a new FakeClock with the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the fixed time.
func (c *FakeClock) Now() time.Time {
	return c.current
}

// Advance moves the fixed time forward by the given duration.
func (c *FakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}
