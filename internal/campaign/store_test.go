package campaign

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestInsertCampaign(t *testing.T) {
	db, mock := newMock(t)
	st := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO campaigns")).
		WithArgs("spring", "Hi {{name}}", "<p>offer</p>", StatusSending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	id, err := st.InsertCampaign(ctx, tx, "spring", "Hi {{name}}", "<p>offer</p>", StatusSending)
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Fatalf("want id 42, got %d", id)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetCampaign(t *testing.T) {
	db, mock := newMock(t)
	st := NewStore(db)

	created := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM campaigns WHERE id=$1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "name", "subject", "body", "status", "sent_at", "created_at"}).
			AddRow(int64(42), "spring", "Hi", "<p>offer</p>", StatusSending, nil, created))

	c, err := st.GetCampaign(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 42 || c.Status != StatusSending || c.SentAt != nil {
		t.Fatalf("unexpected campaign: %+v", c)
	}
}

func TestUpdateStatusFromSending_Promotes(t *testing.T) {
	db, mock := newMock(t)
	st := NewStore(db)

	sentAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("AND status='sending'")).
		WithArgs(StatusSent, sentAt, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := st.UpdateStatusFromSending(context.Background(), 42, StatusSent, sentAt)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("promotion should report a row change")
	}
}

func TestUpdateStatusFromSending_NoOpWhenMoved(t *testing.T) {
	db, mock := newMock(t)
	st := NewStore(db)

	sentAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("AND status='sending'")).
		WithArgs(StatusSent, sentAt, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := st.UpdateStatusFromSending(context.Background(), 42, StatusSent, sentAt)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("no row matched the guard, promotion must be a no-op")
	}
}

func TestSettingsGetInt(t *testing.T) {
	db, mock := newMock(t)
	st := NewSettingsStore(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs(SettingMaxEmailsPerHour).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("120"))
	if got := st.GetInt(ctx, SettingMaxEmailsPerHour, DefaultMaxEmailsPerHour); got != 120 {
		t.Fatalf("want stored 120, got %d", got)
	}

	// absent key falls back to the default
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs(SettingEmailRetryAttempts).
		WillReturnError(sql.ErrNoRows)
	if got := st.GetInt(ctx, SettingEmailRetryAttempts, DefaultEmailRetryAttempts); got != 3 {
		t.Fatalf("want default 3, got %d", got)
	}

	// garbage value falls back too
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).
		WithArgs(SettingMaxEmailsPerHour).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("lots"))
	if got := st.GetInt(ctx, SettingMaxEmailsPerHour, DefaultMaxEmailsPerHour); got != DefaultMaxEmailsPerHour {
		t.Fatalf("want default on garbage, got %d", got)
	}
}

func TestSettingsSet(t *testing.T) {
	db, mock := newMock(t)
	st := NewSettingsStore(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (key) DO UPDATE")).
		WithArgs(SettingMaxEmailsPerHour, "500").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.Set(context.Background(), SettingMaxEmailsPerHour, "500"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
