package transport

import "context"

// Message is one outbound email, body already rendered and tracked.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// MailTransport performs the actual send. The queue does its own batching,
// so SendMany has no atomicity contract beyond per-message errors.
type MailTransport interface {
	SendOne(ctx context.Context, msg Message) error
	SendMany(ctx context.Context, msgs []Message) []error
}
