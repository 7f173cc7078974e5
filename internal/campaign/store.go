package campaign

import (
	"context"
	"database/sql"
	"time"
)

type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

func (s *Store) InsertCampaign(ctx context.Context, tx *sql.Tx, name, subject, body, status string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO campaigns (name, subject, body, status)
		VALUES ($1,$2,$3,$4) RETURNING id
	`, name, subject, body, status).Scan(&id)
	return id, err
}

func (s *Store) GetCampaign(ctx context.Context, id int64) (Campaign, error) {
	var c Campaign
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, subject, body, status, sent_at, created_at
		FROM campaigns WHERE id=$1
	`, id).Scan(&c.ID, &c.Name, &c.Subject, &c.Body, &c.Status, &c.SentAt, &c.CreatedAt)
	if err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (s *Store) ListCampaigns(ctx context.Context, limit, offset int) ([]Campaign, error) {
	if limit <= 0 || limit > 1000 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, subject, body, status, sent_at, created_at
		FROM campaigns
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.Body, &c.Status, &c.SentAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkSending flips a campaign into 'sending' as part of the enqueue
// transaction.
func (s *Store) MarkSending(ctx context.Context, tx *sql.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE campaigns SET status='sending' WHERE id=$1`, id)
	return err
}

// UpdateStatusFromSending promotes a campaign out of 'sending'. The guard in
// the WHERE clause makes the promotion a no-op when an operator already moved
// the campaign elsewhere.
func (s *Store) UpdateStatusFromSending(ctx context.Context, id int64, status string, sentAt time.Time) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE campaigns
		   SET status=$1, sent_at=$2
		 WHERE id=$3 AND status='sending'
	`, status, sentAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
