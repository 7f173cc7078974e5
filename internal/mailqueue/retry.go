package mailqueue

// RetryDecision is the outcome of a failed send attempt.
type RetryDecision struct {
	Status     Status
	RetryCount int
	Error      string
}

// RetryPolicy requeues a failed item until maxRetries attempts have been
// burned, then fails it terminally. A requeued item is eligible on the very
// next tick; the scheduling cadence is the only backoff.
type RetryPolicy struct {
	MaxRetries int
}

func NewRetryPolicy(maxRetries int) RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return RetryPolicy{MaxRetries: maxRetries}
}

func (p RetryPolicy) Decide(it Item, sendErr error) RetryDecision {
	attempts := it.RetryCount + 1
	if attempts >= p.MaxRetries {
		return RetryDecision{Status: StatusFailed, RetryCount: p.MaxRetries, Error: sendErr.Error()}
	}
	return RetryDecision{Status: StatusPending, RetryCount: attempts, Error: sendErr.Error()}
}
