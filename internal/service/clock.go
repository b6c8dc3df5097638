package service

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// systemClock never goes backwards, so persisted registration and payment
// dates are ordered the same way they were written.
type systemClock struct {
	mu   sync.Mutex
	last time.Time
}

func NewSystemClock() Clock {
	return &systemClock{}
}

func (c *systemClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Postgres stores microseconds.
	now := time.Now().UTC().Truncate(time.Microsecond)
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now
	return now
}
