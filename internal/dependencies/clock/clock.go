package clock

import "time"

// Clock provides the current time; lifecycle rules that compare against "now" take one
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock, normalized to UTC
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current UTC time
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}
