package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	EventOpen  EventType = "open"
	EventClick EventType = "click"
)

// Event is one engagement signal from a recipient.
type Event struct {
	CampaignID int64
	ContactID  int64
	SenderID   string
	Type       EventType
	URL        string
	IPAddress  string
	UserAgent  string
	IsUnique   bool
	CreatedAt  time.Time
}

// Sink persists tracking events. With a redis client attached it also marks
// the first open/click per campaign+contact as unique; without one every
// event counts as unique.
type Sink struct {
	DB    *sql.DB
	Redis *redis.Client
}

func NewSink(db *sql.DB, rdb *redis.Client) *Sink {
	return &Sink{DB: db, Redis: rdb}
}

const firstSeenTTL = 90 * 24 * time.Hour

func (s *Sink) Record(ctx context.Context, ev Event) error {
	ev.IsUnique = s.firstSeen(ctx, ev)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tracking_events (campaign_id, contact_id, sender_id, event_type, url, ip_address, user_agent, is_unique, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, ev.CampaignID, ev.ContactID, ev.SenderID, string(ev.Type), ev.URL, ev.IPAddress, ev.UserAgent, ev.IsUnique, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("record tracking event: %w", err)
	}
	return nil
}

func (s *Sink) firstSeen(ctx context.Context, ev Event) bool {
	if s.Redis == nil {
		return true
	}
	key := fmt.Sprintf("track:seen:%s:%d:%d", ev.Type, ev.CampaignID, ev.ContactID)
	ok, err := s.Redis.SetNX(ctx, key, 1, firstSeenTTL).Result()
	if err != nil {
		// a redis outage must not drop the event
		return true
	}
	return ok
}
