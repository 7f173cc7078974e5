package mailqueue

import (
	"context"
	"database/sql"
	"time"
)

// Store persists queue items and owns their status transitions.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return storeErr("begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) validate(it Item) error {
	switch {
	case it.Email == "":
		return &ValidationError{Field: "email"}
	case it.CampaignID == 0:
		return &ValidationError{Field: "campaign_id"}
	case it.ContactID == 0:
		return &ValidationError{Field: "contact_id"}
	}
	return nil
}

// EnqueueTx inserts one pending item inside a caller-owned transaction.
func (s *Store) EnqueueTx(ctx context.Context, tx *sql.Tx, it Item) (int64, error) {
	if err := s.validate(it); err != nil {
		return 0, err
	}
	scheduledAt := it.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO email_queue (campaign_id, contact_id, email, subject, body, status, priority, scheduled_at, retry_count)
		VALUES ($1,$2,$3,$4,$5,'pending',$6,$7,0) RETURNING id
	`, it.CampaignID, it.ContactID, it.Email, it.Subject, it.Body, it.Priority, scheduledAt).Scan(&id)
	return id, storeErr("enqueue", err)
}

func (s *Store) Enqueue(ctx context.Context, it Item) (int64, error) {
	if err := s.validate(it); err != nil {
		return 0, err
	}
	var id int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		var e error
		id, e = s.EnqueueTx(ctx, tx, it)
		return e
	})
	return id, err
}

// FetchPendingBatch claims up to limit ready items. The claim flips status to
// processing atomically with the read (FOR UPDATE SKIP LOCKED), so no other
// caller can be handed the same item.
func (s *Store) FetchPendingBatch(ctx context.Context, limit int) ([]Item, error) {
	rows, err := s.DB.QueryContext(ctx, `
		UPDATE email_queue
		   SET status='processing', updated_at=NOW()
		 WHERE id IN (
		       SELECT id FROM email_queue
		        WHERE status='pending' AND scheduled_at <= NOW()
		        ORDER BY priority ASC, scheduled_at ASC, id ASC
		        LIMIT $1
		        FOR UPDATE SKIP LOCKED)
		RETURNING id, campaign_id, contact_id, email, subject, body, priority, retry_count, created_at
	`, limit)
	if err != nil {
		return nil, storeErr("fetch_pending", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it := Item{Status: StatusProcessing}
		if err := rows.Scan(&it.ID, &it.CampaignID, &it.ContactID, &it.Email, &it.Subject,
			&it.Body, &it.Priority, &it.RetryCount, &it.CreatedAt); err != nil {
			return nil, storeErr("fetch_pending", err)
		}
		items = append(items, it)
	}
	return items, storeErr("fetch_pending", rows.Err())
}

func (s *Store) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE email_queue
		   SET status='sent', sent_at=$1, last_error=NULL, updated_at=NOW()
		 WHERE id=$2
	`, sentAt, id)
	return storeErr("mark_sent", err)
}

func (s *Store) MarkFailed(ctx context.Context, id int64, lastErr string, retryCount int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE email_queue
		   SET status='failed', last_error=$1, retry_count=$2, updated_at=NOW()
		 WHERE id=$3
	`, lastErr, retryCount, id)
	return storeErr("mark_failed", err)
}

func (s *Store) MarkPending(ctx context.Context, id int64, lastErr string, retryCount int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE email_queue
		   SET status='pending', last_error=$1, retry_count=$2, updated_at=NOW()
		 WHERE id=$3
	`, lastErr, retryCount, id)
	return storeErr("mark_pending", err)
}

// ReclaimStuck returns items abandoned in processing (a worker that died never
// wrote a terminal status) to pending. Retry counts are kept as they were.
func (s *Store) ReclaimStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE email_queue
		   SET status='pending', last_error='reclaimed: processing timed out', updated_at=NOW()
		 WHERE status='processing' AND updated_at < NOW() - $1::interval
	`, olderThan.String())
	if err != nil {
		return 0, storeErr("reclaim_stuck", err)
	}
	n, err := res.RowsAffected()
	return n, storeErr("reclaim_stuck", err)
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
		  COUNT(*) FILTER (WHERE status='pending')    AS pending,
		  COUNT(*) FILTER (WHERE status='processing') AS processing,
		  COUNT(*) FILTER (WHERE status='sent')       AS sent,
		  COUNT(*) FILTER (WHERE status='failed')     AS failed
		FROM email_queue
	`).Scan(&st.Pending, &st.Processing, &st.Sent, &st.Failed)
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	return st, nil
}

// CampaignStats breaks the per-status counts down for one campaign.
func (s *Store) CampaignStats(ctx context.Context, campaignID int64) (Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
		  COUNT(*) FILTER (WHERE status='pending')    AS pending,
		  COUNT(*) FILTER (WHERE status='processing') AS processing,
		  COUNT(*) FILTER (WHERE status='sent')       AS sent,
		  COUNT(*) FILTER (WHERE status='failed')     AS failed
		FROM email_queue
		WHERE campaign_id = $1
	`, campaignID).Scan(&st.Pending, &st.Processing, &st.Sent, &st.Failed)
	if err != nil {
		return Stats{}, storeErr("campaign_stats", err)
	}
	return st, nil
}

// HasUnfinished reports whether any item of a campaign is still outside a
// terminal state.
func (s *Store) HasUnfinished(ctx context.Context, campaignID int64) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM email_queue
		 WHERE campaign_id=$1 AND status IN ('pending','processing')
	`, campaignID).Scan(&n)
	if err != nil {
		return false, storeErr("has_unfinished", err)
	}
	return n > 0, nil
}

func (s *Store) RetryAllFailed(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE email_queue
		   SET status='pending', retry_count=0, updated_at=NOW()
		 WHERE status='failed'
	`)
	if err != nil {
		return 0, storeErr("retry_all_failed", err)
	}
	n, err := res.RowsAffected()
	return n, storeErr("retry_all_failed", err)
}

func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.clearByStatus(ctx, StatusFailed)
}

func (s *Store) ClearSent(ctx context.Context) (int64, error) {
	return s.clearByStatus(ctx, StatusSent)
}

func (s *Store) clearByStatus(ctx context.Context, status Status) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM email_queue WHERE status=$1`, string(status))
	if err != nil {
		return 0, storeErr("clear", err)
	}
	n, err := res.RowsAffected()
	return n, storeErr("clear", err)
}
