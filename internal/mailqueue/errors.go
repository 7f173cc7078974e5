package mailqueue

import "fmt"

// ValidationError rejects malformed enqueue input before it reaches the store.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid queue item: missing %s", e.Field)
}

// StoreError marks a persistence failure. A tick that hits one aborts and
// relies on the next tick to retry, since no item state was changed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("queue store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
