package mailqueue

import (
	"errors"
	"testing"
)

func TestRetryPolicy_RequeuesUntilExhausted(t *testing.T) {
	p := NewRetryPolicy(3)
	sendErr := errors.New("connection refused")

	dec := p.Decide(Item{RetryCount: 0}, sendErr)
	if dec.Status != StatusPending || dec.RetryCount != 1 {
		t.Fatalf("first failure: want pending/1, got %s/%d", dec.Status, dec.RetryCount)
	}

	dec = p.Decide(Item{RetryCount: 1}, sendErr)
	if dec.Status != StatusPending || dec.RetryCount != 2 {
		t.Fatalf("second failure: want pending/2, got %s/%d", dec.Status, dec.RetryCount)
	}

	dec = p.Decide(Item{RetryCount: 2}, sendErr)
	if dec.Status != StatusFailed || dec.RetryCount != 3 {
		t.Fatalf("third failure: want failed/3, got %s/%d", dec.Status, dec.RetryCount)
	}
	if dec.Error == "" {
		t.Fatal("terminal failure must carry the error text")
	}
}

func TestRetryPolicy_RetryCountNeverExceedsMax(t *testing.T) {
	p := NewRetryPolicy(3)
	for rc := 0; rc < 10; rc++ {
		dec := p.Decide(Item{RetryCount: rc}, errors.New("x"))
		if dec.RetryCount > 3 {
			t.Fatalf("retry count %d exceeds max", dec.RetryCount)
		}
	}
}

func TestRetryPolicy_ZeroRetries(t *testing.T) {
	p := NewRetryPolicy(0)
	dec := p.Decide(Item{RetryCount: 0}, errors.New("x"))
	if dec.Status != StatusFailed {
		t.Fatalf("with zero retries first failure is terminal, got %s", dec.Status)
	}
}
