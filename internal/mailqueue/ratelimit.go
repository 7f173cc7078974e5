package mailqueue

import (
	"sync"
	"time"
)

// RateLimiter slices an operator-configured sends-per-hour budget into fixed
// one-minute windows. Windows are keyed to the wall clock, so unused budget
// never carries over and the limiter may under-admit near a boundary.
//
// The per-window cap never rounds below 1: a budget under 60/hour still
// admits one send per minute and can deliver up to 60/hour.
type RateLimiter struct {
	mu          sync.Mutex
	maxPerHour  int
	window      time.Duration
	windowStart time.Time
	sent        int
	now         func() time.Time
}

func NewRateLimiter(maxPerHour int) *RateLimiter {
	return &RateLimiter{
		maxPerHour: maxPerHour,
		window:     time.Minute,
		now:        time.Now,
	}
}

func (r *RateLimiter) cap() int {
	c := int(int64(r.maxPerHour) * int64(r.window) / int64(time.Hour))
	if c < 1 {
		c = 1
	}
	return c
}

func (r *RateLimiter) roll() {
	start := r.now().Truncate(r.window)
	if !start.Equal(r.windowStart) {
		r.windowStart = start
		r.sent = 0
	}
}

// Admit returns how many of the requested sends fit the current window budget.
func (r *RateLimiter) Admit(requested int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roll()

	remaining := r.cap() - r.sent
	if remaining <= 0 {
		return 0
	}
	if requested < remaining {
		return requested
	}
	return remaining
}

// RecordSent charges n transport attempts against the current window.
func (r *RateLimiter) RecordSent(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roll()
	r.sent += n
}

// SetMaxPerHour applies an updated operator setting without resetting the
// current window counter.
func (r *RateLimiter) SetMaxPerHour(maxPerHour int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxPerHour = maxPerHour
}
