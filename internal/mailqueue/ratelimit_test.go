package mailqueue

import (
	"testing"
	"time"
)

func TestRateLimiter_WindowBudget(t *testing.T) {
	r := NewRateLimiter(300) // 5 per minute
	now := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
	r.now = func() time.Time { return now }

	if got := r.Admit(10); got != 5 {
		t.Fatalf("want 5 admitted, got %d", got)
	}
	r.RecordSent(3)
	if got := r.Admit(10); got != 2 {
		t.Fatalf("want 2 admitted after 3 sent, got %d", got)
	}
	if got := r.Admit(1); got != 1 {
		t.Fatalf("want 1 admitted, got %d", got)
	}
	r.RecordSent(2)
	if got := r.Admit(10); got != 0 {
		t.Fatalf("want 0 admitted on exhausted window, got %d", got)
	}
}

func TestRateLimiter_WindowReset_NoCarryOver(t *testing.T) {
	r := NewRateLimiter(300)
	now := time.Date(2025, 6, 1, 12, 0, 59, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.RecordSent(5)
	if got := r.Admit(10); got != 0 {
		t.Fatalf("want 0 before reset, got %d", got)
	}

	// next wall-clock minute: counter resets, unused budget never accumulates
	now = now.Add(2 * time.Second)
	if got := r.Admit(10); got != 5 {
		t.Fatalf("want fresh budget of 5 after window rollover, got %d", got)
	}
}

func TestRateLimiter_CapAtLeastOne(t *testing.T) {
	r := NewRateLimiter(30) // 0.5 per minute rounds up to 1
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if got := r.Admit(10); got != 1 {
		t.Fatalf("want minimum cap of 1, got %d", got)
	}
}

func TestRateLimiter_SetMaxPerHour(t *testing.T) {
	r := NewRateLimiter(300)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.RecordSent(4)
	r.SetMaxPerHour(600) // 10 per minute, current window counter kept
	if got := r.Admit(100); got != 6 {
		t.Fatalf("want 6 admitted after raising the cap, got %d", got)
	}
}
