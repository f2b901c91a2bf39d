// Package store persists accounts and completed transcriptions.
// Two backends implement the same interface: a local SQLite file for
// single-node deployments and the CLI, and a hosted Supabase project
// for the shared service. The pipeline only ever records completed
// work; failed runs leave no row behind.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tubescribe/internal/config"
)

// Plans. Free accounts carry a credit counter; pro accounts are
// not metered.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// DefaultFreeCredits seeds new accounts created on first sight.
const DefaultFreeCredits = 3

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Account is the billing view of a requester. Plan and credits are
// updated by external billing webhooks; the pipeline only reads them
// and decrements credits on use.
type Account struct {
	ID               string    `json:"id"`
	Plan             string    `json:"plan"`
	CreditsRemaining int       `json:"credits_remaining"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Metered reports whether the account's plan consumes credits.
func (a *Account) Metered() bool {
	return a.Plan == PlanFree
}

// Transcription is one completed pipeline run. Rows are append-only.
// JSON tags double as column names for the Supabase REST backend.
type Transcription struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	Channel         string    `json:"channel"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	Language        string    `json:"language"`
	Generated       bool      `json:"is_generated"`
	PlainText       string    `json:"plain_text"`
	TimestampedText string    `json:"timestamped_text"`
	WordCount       int       `json:"word_count"`
	SegmentCount    int       `json:"segment_count"`
	Summary         string    `json:"summary,omitempty"`
	SummaryError    string    `json:"summary_error,omitempty"`
	Source          string    `json:"source,omitempty"`
	ElapsedMs       int64     `json:"elapsed_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is the persistence contract shared by both backends.
//
// DecrementCredits is a read-then-write with no transactional guard:
// two concurrent requests from the same account can both pass the
// credit gate. Known limitation carried over from the billing model,
// not worth a locking scheme at this scale.
type Store interface {
	GetOrCreateAccount(ctx context.Context, accountID string) (*Account, error)
	DecrementCredits(ctx context.Context, accountID string) error
	RecordTranscription(ctx context.Context, rec *Transcription) (string, error)
	GetTranscription(ctx context.Context, id string) (*Transcription, error)
	ListTranscriptions(ctx context.Context, accountID string, limit int) ([]*Transcription, error)
	Close() error
}

// Open builds the configured backend. Driver "" means persistence is
// disabled and returns a nil Store; callers must treat nil as
// "skip all store calls".
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "supabase":
		return OpenSupabase(ctx, cfg.Supabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
