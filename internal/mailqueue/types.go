package mailqueue

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Item is one pending/attempted/completed email send, tied to one
// campaign and one recipient.
type Item struct {
	ID          int64
	CampaignID  int64
	ContactID   int64
	Email       string
	Subject     string
	Body        string
	Status      Status
	Priority    int
	ScheduledAt time.Time
	SentAt      *time.Time
	Error       string
	RetryCount  int
	CreatedAt   time.Time
}

type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

type ProgressStatus string

const (
	ProgressIdle    ProgressStatus = "idle"
	ProgressSending ProgressStatus = "sending"
	ProgressSuccess ProgressStatus = "success"
	ProgressError   ProgressStatus = "error"
)

// ProgressSnapshot describes the state of the current scheduling run. It is
// rebuilt on every dispatch event and never persisted.
type ProgressSnapshot struct {
	Status       ProgressStatus `json:"status"`
	CurrentEmail string         `json:"current_email,omitempty"`
	TotalEmails  int            `json:"total_emails"`
	SentEmails   int            `json:"sent_emails"`
	Percentage   float64        `json:"percentage"`
	Error        string         `json:"error,omitempty"`
}
