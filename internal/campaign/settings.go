package campaign

import (
	"context"
	"database/sql"
	"strconv"
)

// Operator-tunable settings with their documented defaults.
const (
	SettingMaxEmailsPerHour   = "max_emails_per_hour"
	SettingEmailRetryAttempts = "email_retry_attempts"

	DefaultMaxEmailsPerHour   = 300
	DefaultEmailRetryAttempts = 3
)

type SettingsStore struct {
	DB *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore { return &SettingsStore{DB: db} }

func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&v)
	return v, err
}

// GetInt returns the stored value, or def when the key is absent or garbage.
func (s *SettingsStore) GetInt(ctx context.Context, key string, def int) int {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value
	`, key, value)
	return err
}
