package transport

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerTransport trips after a run of consecutive provider failures so the
// queue's retries back off to the circuit's cool-down instead of hammering a
// dead SMTP endpoint. Rejected sends surface as ordinary transient errors and
// go back through the retry policy.
type BreakerTransport struct {
	next MailTransport
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next MailTransport) *BreakerTransport {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "smtp",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakerTransport{next: next, cb: cb}
}

func (t *BreakerTransport) SendOne(ctx context.Context, msg Message) error {
	_, err := t.cb.Execute(func() (interface{}, error) {
		return nil, t.next.SendOne(ctx, msg)
	})
	return err
}

func (t *BreakerTransport) SendMany(ctx context.Context, msgs []Message) []error {
	errs := make([]error, len(msgs))
	for i, m := range msgs {
		errs[i] = t.SendOne(ctx, m)
	}
	return errs
}
