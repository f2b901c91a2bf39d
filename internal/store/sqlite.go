package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the local-file backing store. All public methods are safe
// for concurrent use (SQLite serializes writes).
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database file and migrates the
// schema. WAL mode keeps readers unblocked during writes.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewSQLite(db)
}

// NewSQLite wraps an existing connection and migrates the schema.
// Tests use this with an in-memory database.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id                TEXT PRIMARY KEY,
		plan              TEXT NOT NULL DEFAULT 'free',
		credits_remaining INTEGER NOT NULL DEFAULT 3,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS transcriptions (
		id               TEXT PRIMARY KEY,
		account_id       TEXT NOT NULL,
		video_id         TEXT NOT NULL,
		title            TEXT NOT NULL,
		channel          TEXT NOT NULL,
		thumbnail_url    TEXT,
		language         TEXT NOT NULL,
		is_generated     INTEGER NOT NULL,
		plain_text       TEXT NOT NULL,
		timestamped_text TEXT NOT NULL,
		word_count       INTEGER NOT NULL,
		summary          TEXT,
		summary_error    TEXT,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcriptions_account ON transcriptions(account_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transcriptions_video ON transcriptions(video_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Additive migrations for older database files. SQLite has no
	// ADD COLUMN IF NOT EXISTS, so duplicate-column errors are
	// expected and ignored.
	alters := []string{
		`ALTER TABLE transcriptions ADD COLUMN source TEXT`,
		`ALTER TABLE transcriptions ADD COLUMN segment_count INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE transcriptions ADD COLUMN elapsed_ms INTEGER NOT NULL DEFAULT 0`,
	}
	for _, stmt := range alters {
		if _, err := s.db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column name") {
			return fmt.Errorf("alter transcriptions: %w", err)
		}
	}
	return nil
}

// GetOrCreateAccount returns the account, creating it on first sight
// with the free plan and the default credit allowance.
func (s *SQLite) GetOrCreateAccount(ctx context.Context, accountID string) (*Account, error) {
	acct, err := s.getAccount(ctx, accountID)
	if err == nil {
		return acct, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, plan, credits_remaining, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		accountID, PlanFree, DefaultFreeCredits, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return s.getAccount(ctx, accountID)
}

func (s *SQLite) getAccount(ctx context.Context, accountID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan, credits_remaining, created_at, updated_at
		 FROM accounts WHERE id = ?`, accountID)

	var acct Account
	var created, updated string
	if err := row.Scan(&acct.ID, &acct.Plan, &acct.CreditsRemaining, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	acct.CreatedAt, _ = time.Parse(time.RFC3339, created)
	acct.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &acct, nil
}

// DecrementCredits spends one credit. Deliberately read-then-write;
// see the Store interface note on the race window.
func (s *SQLite) DecrementCredits(ctx context.Context, accountID string) error {
	acct, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE accounts SET credits_remaining = ?, updated_at = ? WHERE id = ?`,
		acct.CreditsRemaining-1,
		time.Now().UTC().Format(time.RFC3339),
		accountID,
	)
	if err != nil {
		return fmt.Errorf("decrement credits: %w", err)
	}
	return nil
}

// RecordTranscription persists a completed run. If rec.ID is empty, a
// UUIDv7 is generated. Returns the record id.
func (s *SQLite) RecordTranscription(ctx context.Context, rec *Transcription) (string, error) {
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generate transcription ID: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcriptions
			(id, account_id, video_id, title, channel, thumbnail_url, language, is_generated,
			 plain_text, timestamped_text, word_count, segment_count, summary, summary_error, source, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.AccountID,
		rec.VideoID,
		rec.Title,
		rec.Channel,
		rec.ThumbnailURL,
		rec.Language,
		rec.Generated,
		rec.PlainText,
		rec.TimestampedText,
		rec.WordCount,
		rec.SegmentCount,
		rec.Summary,
		rec.SummaryError,
		rec.Source,
		rec.ElapsedMs,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("insert transcription: %w", err)
	}
	return rec.ID, nil
}

// GetTranscription loads one record by id.
func (s *SQLite) GetTranscription(ctx context.Context, id string) (*Transcription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, account_id, video_id, title, channel, thumbnail_url, language, is_generated,
		        plain_text, timestamped_text, word_count, segment_count, summary, summary_error, source, elapsed_ms, created_at
		 FROM transcriptions WHERE id = ?`, id)

	rec, err := scanTranscription(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query transcription: %w", err)
	}
	return rec, nil
}

// ListTranscriptions returns an account's records, newest first.
func (s *SQLite) ListTranscriptions(ctx context.Context, accountID string, limit int) ([]*Transcription, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, video_id, title, channel, thumbnail_url, language, is_generated,
		        plain_text, timestamped_text, word_count, segment_count, summary, summary_error, source, elapsed_ms, created_at
		 FROM transcriptions
		 WHERE account_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}
	defer rows.Close()

	var recs []*Transcription
	for rows.Next() {
		rec, err := scanTranscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTranscription(sc scanner) (*Transcription, error) {
	var rec Transcription
	var thumbnail, summary, summaryErr, source sql.NullString
	var created string

	err := sc.Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.VideoID,
		&rec.Title,
		&rec.Channel,
		&thumbnail,
		&rec.Language,
		&rec.Generated,
		&rec.PlainText,
		&rec.TimestampedText,
		&rec.WordCount,
		&rec.SegmentCount,
		&summary,
		&summaryErr,
		&source,
		&rec.ElapsedMs,
		&created,
	)
	if err != nil {
		return nil, err
	}

	rec.ThumbnailURL = thumbnail.String
	rec.Summary = summary.String
	rec.SummaryError = summaryErr.String
	rec.Source = source.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &rec, nil
}
