package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/supabase-community/postgrest-go"
	supabase "github.com/supabase-community/supabase-go"

	"tubescribe/internal/config"
)

// Supabase is the hosted backing store. It runs in one of two modes:
// a direct Postgres connection when a connection string is
// configured, or the PostgREST API when only URL and key are. Direct
// mode is preferred when both are available.
type Supabase struct {
	db  *sql.DB
	sdk *supabase.Client
}

// OpenSupabase connects according to the configured credentials and,
// in direct mode, migrates the schema.
func OpenSupabase(ctx context.Context, cfg config.SupabaseConfig) (*Supabase, error) {
	s := &Supabase{}

	if cfg.URL != "" && cfg.Key != "" {
		sdk, err := supabase.NewClient(cfg.URL, cfg.Key, nil)
		if err != nil {
			return nil, fmt.Errorf("initialize supabase client: %w", err)
		}
		s.sdk = sdk
	}

	if cfg.ConnString != "" {
		// Simple protocol avoids prepared-statement cache conflicts
		// behind Supabase's connection pooler.
		connStr := addConnParam(cfg.ConnString, "statement_cache_capacity", "0")
		connStr = addConnParam(connStr, "default_query_exec_mode", "simple_protocol")

		db, err := sql.Open("pgx", connStr)
		if err == nil {
			err = db.PingContext(ctx)
		}
		if err != nil {
			if db != nil {
				db.Close()
			}
			// REST mode can still serve if the SDK came up.
			if s.sdk == nil {
				return nil, fmt.Errorf("connect supabase postgres: %w", err)
			}
		} else {
			s.db = db
			if err := s.migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate supabase schema: %w", err)
			}
		}
	}

	if s.db == nil && s.sdk == nil {
		return nil, fmt.Errorf("supabase requires url+key or conn_string")
	}
	return s, nil
}

// Close closes the direct connection if one is open.
func (s *Supabase) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func addConnParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return connStr + sep + key + "=" + value
}

func (s *Supabase) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id                TEXT PRIMARY KEY,
		plan              TEXT NOT NULL DEFAULT 'free',
		credits_remaining INTEGER NOT NULL DEFAULT 3,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS transcriptions (
		id               TEXT PRIMARY KEY,
		account_id       TEXT NOT NULL,
		video_id         TEXT NOT NULL,
		title            TEXT NOT NULL,
		channel          TEXT NOT NULL,
		thumbnail_url    TEXT,
		language         TEXT NOT NULL,
		is_generated     BOOLEAN NOT NULL,
		plain_text       TEXT NOT NULL,
		timestamped_text TEXT NOT NULL,
		word_count       INTEGER NOT NULL,
		segment_count    INTEGER NOT NULL DEFAULT 0,
		summary          TEXT,
		summary_error    TEXT,
		source           TEXT,
		elapsed_ms       BIGINT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_transcriptions_account ON transcriptions(account_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transcriptions_video ON transcriptions(video_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Supabase) GetOrCreateAccount(ctx context.Context, accountID string) (*Account, error) {
	if s.db != nil {
		return s.getOrCreateAccountSQL(ctx, accountID)
	}
	return s.getOrCreateAccountREST(ctx, accountID)
}

func (s *Supabase) getOrCreateAccountSQL(ctx context.Context, accountID string) (*Account, error) {
	acct, err := s.getAccountSQL(ctx, accountID)
	if err == nil {
		return acct, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, plan, credits_remaining)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		accountID, PlanFree, DefaultFreeCredits,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return s.getAccountSQL(ctx, accountID)
}

func (s *Supabase) getAccountSQL(ctx context.Context, accountID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan, credits_remaining, created_at, updated_at
		 FROM accounts WHERE id = $1`, accountID)

	var acct Account
	if err := row.Scan(&acct.ID, &acct.Plan, &acct.CreditsRemaining, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &acct, nil
}

func (s *Supabase) getOrCreateAccountREST(ctx context.Context, accountID string) (*Account, error) {
	var accts []*Account
	_, err := s.sdk.From("accounts").
		Select("*", "", false).
		Eq("id", accountID).
		ExecuteTo(&accts)
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	if len(accts) > 0 {
		return accts[0], nil
	}

	now := time.Now().UTC()
	fresh := &Account{
		ID:               accountID,
		Plan:             PlanFree,
		CreditsRemaining: DefaultFreeCredits,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	_, _, err = s.sdk.From("accounts").
		Insert(fresh, false, "", "", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return fresh, nil
}

func (s *Supabase) DecrementCredits(ctx context.Context, accountID string) error {
	acct, err := s.GetOrCreateAccount(ctx, accountID)
	if err != nil {
		return err
	}
	remaining := acct.CreditsRemaining - 1
	now := time.Now().UTC()

	if s.db != nil {
		_, err := s.db.ExecContext(ctx,
			`UPDATE accounts SET credits_remaining = $1, updated_at = $2 WHERE id = $3`,
			remaining, now, accountID)
		if err != nil {
			return fmt.Errorf("decrement credits: %w", err)
		}
		return nil
	}

	_, _, err = s.sdk.From("accounts").
		Update(map[string]any{
			"credits_remaining": remaining,
			"updated_at":        now.Format(time.RFC3339),
		}, "", "").
		Eq("id", accountID).
		Execute()
	if err != nil {
		return fmt.Errorf("decrement credits: %w", err)
	}
	return nil
}

func (s *Supabase) RecordTranscription(ctx context.Context, rec *Transcription) (string, error) {
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

	if s.db != nil {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO transcriptions
				(id, account_id, video_id, title, channel, thumbnail_url, language, is_generated,
				 plain_text, timestamped_text, word_count, segment_count, summary, summary_error, source, elapsed_ms, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			rec.ID, rec.AccountID, rec.VideoID, rec.Title, rec.Channel, rec.ThumbnailURL,
			rec.Language, rec.Generated, rec.PlainText, rec.TimestampedText, rec.WordCount,
			rec.SegmentCount, rec.Summary, rec.SummaryError, rec.Source, rec.ElapsedMs, rec.CreatedAt,
		)
		if err != nil {
			return "", fmt.Errorf("insert transcription: %w", err)
		}
		return rec.ID, nil
	}

	_, _, err := s.sdk.From("transcriptions").
		Insert(rec, false, "", "", "").
		Execute()
	if err != nil {
		return "", fmt.Errorf("insert transcription: %w", err)
	}
	return rec.ID, nil
}

func (s *Supabase) GetTranscription(ctx context.Context, id string) (*Transcription, error) {
	if s.db != nil {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, account_id, video_id, title, channel, COALESCE(thumbnail_url, ''), language, is_generated,
			        plain_text, timestamped_text, word_count, segment_count, COALESCE(summary, ''), COALESCE(summary_error, ''),
			        COALESCE(source, ''), elapsed_ms, created_at
			 FROM transcriptions WHERE id = $1`, id)

		var rec Transcription
		err := row.Scan(&rec.ID, &rec.AccountID, &rec.VideoID, &rec.Title, &rec.Channel, &rec.ThumbnailURL,
			&rec.Language, &rec.Generated, &rec.PlainText, &rec.TimestampedText, &rec.WordCount,
			&rec.SegmentCount, &rec.Summary, &rec.SummaryError, &rec.Source, &rec.ElapsedMs, &rec.CreatedAt)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("query transcription: %w", err)
		}
		return &rec, nil
	}

	data, _, err := s.sdk.From("transcriptions").
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("query transcription: %w", err)
	}
	var recs []*Transcription
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode transcription: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (s *Supabase) ListTranscriptions(ctx context.Context, accountID string, limit int) ([]*Transcription, error) {
	if limit <= 0 {
		limit = 50
	}

	if s.db != nil {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, account_id, video_id, title, channel, COALESCE(thumbnail_url, ''), language, is_generated,
			        plain_text, timestamped_text, word_count, segment_count, COALESCE(summary, ''), COALESCE(summary_error, ''),
			        COALESCE(source, ''), elapsed_ms, created_at
			 FROM transcriptions
			 WHERE account_id = $1
			 ORDER BY created_at DESC
			 LIMIT $2`, accountID, limit)
		if err != nil {
			return nil, fmt.Errorf("query transcriptions: %w", err)
		}
		defer rows.Close()

		var recs []*Transcription
		for rows.Next() {
			var rec Transcription
			err := rows.Scan(&rec.ID, &rec.AccountID, &rec.VideoID, &rec.Title, &rec.Channel, &rec.ThumbnailURL,
				&rec.Language, &rec.Generated, &rec.PlainText, &rec.TimestampedText, &rec.WordCount,
				&rec.SegmentCount, &rec.Summary, &rec.SummaryError, &rec.Source, &rec.ElapsedMs, &rec.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("scan transcription: %w", err)
			}
			recs = append(recs, &rec)
		}
		return recs, rows.Err()
	}

	var recs []*Transcription
	_, err := s.sdk.From("transcriptions").
		Select("*", "", false).
		Eq("account_id", accountID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&recs)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}
	return recs, nil
}
