// Package pipeline orchestrates a transcription request end to end:
// resolve the video id, gate on the account's credits, acquire a
// caption payload, parse and assemble the transcript, then attach
// best-effort metadata and summary. Each request is one independent,
// stateless execution; the only shared objects are concurrency-safe
// clients.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tubescribe/internal/captions"
	"tubescribe/internal/config"
	"tubescribe/internal/metadata"
	"tubescribe/internal/store"
	"tubescribe/internal/summary"
	"tubescribe/internal/videoid"
	"tubescribe/internal/youtube"
)

// DefaultOverallTimeout bounds one whole request, acquisition through
// summary. Persistence runs outside the ceiling: once a transcript
// exists the record write must not be killed by the deadline.
const DefaultOverallTimeout = 60 * time.Second

// Failure taxonomy. The HTTP layer maps these to status codes;
// youtube.ErrNoCaptions joins them from the acquisition package.
var (
	ErrInvalidInput  = errors.New("could not resolve a video id from input")
	ErrQuotaExceeded = errors.New("plan limit reached")
	ErrNoSegments    = errors.New("no transcript segments could be extracted")
	ErrTimeout       = errors.New("processing deadline exceeded")
)

// Stage names for progress events.
const (
	StageResolve  = "resolve"
	StageQuota    = "quota"
	StageAcquire  = "acquire"
	StageParse    = "parse"
	StageMetadata = "metadata"
	StageSummary  = "summary"
	StagePersist  = "persist"
)

// Event statuses.
const (
	StatusStart = "start"
	StatusOK    = "ok"
	StatusSkip  = "skip"
	StatusFail  = "fail"
)

// Event is one progress notification, consumed by the websocket
// endpoint and the CLI's verbose mode.
type Event struct {
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// ProgressFunc receives events in order. Calls are synchronous on the
// request goroutine; implementations must be fast.
type ProgressFunc func(Event)

// Request describes one transcription run. RawTranscript bypasses
// server-side acquisition entirely for callers whose own network
// egress reached the origin; the payload goes through the same parser
// as server-fetched data.
type Request struct {
	AccountID     string
	Input         string
	WantSummary   bool
	RawTranscript []byte
	RawLanguage   string
	RawGenerated  bool
	Progress      ProgressFunc
}

// Result is a completed transcription.
type Result struct {
	RecordID        string        `json:"record_id,omitempty"`
	VideoID         string        `json:"video_id"`
	Title           string        `json:"title"`
	Channel         string        `json:"channel"`
	ThumbnailURL    string        `json:"thumbnail_url,omitempty"`
	Language        string        `json:"language"`
	Generated       bool          `json:"is_generated"`
	PlainText       string        `json:"plain_text"`
	TimestampedText string        `json:"timestamped_text"`
	WordCount       int           `json:"word_count"`
	SegmentCount    int           `json:"segment_count"`
	Summary         string        `json:"summary,omitempty"`
	SummaryError    string        `json:"summary_error,omitempty"`
	Source          string        `json:"source,omitempty"`
	Elapsed         time.Duration `json:"-"`
}

// Narrow views of the collaborators, for substitution in tests.

type captionSource interface {
	Acquire(ctx context.Context, videoID string) (*youtube.Acquisition, error)
}

type metadataLookup interface {
	Lookup(ctx context.Context, videoID string) (*metadata.Video, error)
}

type summaryGenerator interface {
	Available() bool
	Generate(ctx context.Context, req summary.Request) (string, error)
}

// Pipeline runs transcription requests.
type Pipeline struct {
	source     captionSource
	meta       metadataLookup
	summarizer summaryGenerator
	store      store.Store // nil when persistence is disabled
	overall    time.Duration
	logger     *slog.Logger
}

// New wires the pipeline from configuration. st may be nil.
func New(cfg *config.Config, st store.Store, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	source, err := youtube.NewSource(cfg.YouTube, logger)
	if err != nil {
		return nil, err
	}

	overall := time.Duration(cfg.YouTube.OverallTimeoutSec) * time.Second
	if overall <= 0 {
		overall = DefaultOverallTimeout
	}

	return &Pipeline{
		source:     source,
		meta:       metadata.NewClient(""),
		summarizer: summary.NewGenerator(cfg.Summary, logger),
		store:      st,
		overall:    overall,
		logger:     logger,
	}, nil
}

// Run executes one transcription request. Every log line carries a
// run id so concurrent requests stay distinguishable.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	logger := p.logger.With("run_id", uuid.New().String())
	emit := func(stage, status, detail string) {
		if req.Progress != nil {
			req.Progress(Event{
				Stage:     stage,
				Status:    status,
				Detail:    detail,
				ElapsedMs: time.Since(started).Milliseconds(),
			})
		}
	}

	emit(StageResolve, StatusStart, "")
	videoID, ok := videoid.Resolve(req.Input)
	if !ok {
		emit(StageResolve, StatusFail, "unrecognized input")
		return nil, fmt.Errorf("%w: %q", ErrInvalidInput, req.Input)
	}
	emit(StageResolve, StatusOK, videoID)

	// Credit gate runs before any network work.
	var acct *store.Account
	if p.store != nil && req.AccountID != "" {
		a, err := p.store.GetOrCreateAccount(ctx, req.AccountID)
		if err != nil {
			return nil, fmt.Errorf("load account: %w", err)
		}
		if a.Metered() && a.CreditsRemaining <= 0 {
			emit(StageQuota, StatusFail, "no credits remaining")
			return nil, ErrQuotaExceeded
		}
		acct = a
	}

	// The ceiling spans acquisition through summary.
	runCtx, cancel := context.WithTimeout(ctx, p.overall)
	defer cancel()

	var acq *youtube.Acquisition
	if len(req.RawTranscript) > 0 {
		emit(StageAcquire, StatusSkip, "client-supplied payload")
		lang := req.RawLanguage
		if lang == "" {
			lang = "auto"
		}
		acq = &youtube.Acquisition{
			Raw: req.RawTranscript,
			Selected: captions.Track{
				LanguageCode: lang,
				Generated:    req.RawGenerated,
			},
			Source: "client",
		}
	} else {
		emit(StageAcquire, StatusStart, "")
		a, err := p.source.Acquire(runCtx, videoID)
		if err != nil {
			emit(StageAcquire, StatusFail, err.Error())
			return nil, p.classify(err)
		}
		acq = a
		emit(StageAcquire, StatusOK, acq.Source)
	}

	var segments []captions.TimedSegment
	if len(acq.Segments) > 0 {
		segments = acq.Segments
		emit(StageParse, StatusOK, "pre-parsed segments")
	} else {
		var format captions.Format
		segments, format = captions.ParseSegments(acq.Raw)
		if len(segments) == 0 {
			emit(StageParse, StatusFail, "payload unparseable by either format")
			return nil, ErrNoSegments
		}
		emit(StageParse, StatusOK, string(format))
	}

	transcript := captions.Assemble(segments, acq.Selected.LanguageCode, acq.Selected.Generated)

	meta := p.lookupMetadata(runCtx, logger, videoID, acq.PageHTML)
	emit(StageMetadata, StatusOK, meta.Title)

	var summaryText, summaryErr string
	if req.WantSummary {
		switch {
		case !p.summarizer.Available():
			summaryErr = "no summary provider configured"
			emit(StageSummary, StatusSkip, summaryErr)
		default:
			emit(StageSummary, StatusStart, "")
			text, err := p.summarizer.Generate(runCtx, summary.Request{
				PlainText: transcript.PlainText(),
				Title:     meta.Title,
				Channel:   meta.Channel,
			})
			if err != nil {
				summaryErr = err.Error()
				emit(StageSummary, StatusFail, summaryErr)
				logger.Warn("summary generation failed", "video_id", videoID, "error", err)
			} else {
				summaryText = text
				emit(StageSummary, StatusOK, "")
			}
		}
	}

	result := &Result{
		VideoID:         videoID,
		Title:           meta.Title,
		Channel:         meta.Channel,
		ThumbnailURL:    meta.ThumbnailURL,
		Language:        transcript.Language,
		Generated:       transcript.Generated,
		PlainText:       transcript.PlainText(),
		TimestampedText: transcript.TimestampedText(),
		WordCount:       transcript.WordCount(),
		SegmentCount:    len(segments),
		Summary:         summaryText,
		SummaryError:    summaryErr,
		Source:          acq.Source,
	}

	// Persistence runs on the caller's context, outside the ceiling:
	// a computed transcript must survive a slow store. Store failures
	// downgrade to warnings on an otherwise successful result.
	if p.store != nil && req.AccountID != "" {
		if acct != nil && acct.Metered() {
			if err := p.store.DecrementCredits(ctx, req.AccountID); err != nil {
				logger.Warn("credit decrement failed", "account_id", req.AccountID, "error", err)
			}
		}

		id, err := p.store.RecordTranscription(ctx, &store.Transcription{
			AccountID:       req.AccountID,
			VideoID:         videoID,
			Title:           result.Title,
			Channel:         result.Channel,
			ThumbnailURL:    result.ThumbnailURL,
			Language:        result.Language,
			Generated:       result.Generated,
			PlainText:       result.PlainText,
			TimestampedText: result.TimestampedText,
			WordCount:       result.WordCount,
			SegmentCount:    result.SegmentCount,
			Summary:         result.Summary,
			SummaryError:    result.SummaryError,
			Source:          result.Source,
			ElapsedMs:       time.Since(started).Milliseconds(),
		})
		if err != nil {
			emit(StagePersist, StatusFail, err.Error())
			logger.Warn("record transcription failed", "account_id", req.AccountID, "video_id", videoID, "error", err)
		} else {
			result.RecordID = id
			emit(StagePersist, StatusOK, id)
		}
	}

	result.Elapsed = time.Since(started)
	return result, nil
}

// classify maps acquisition failures onto the taxonomy. Deadline
// expiry outranks exhaustion: a chain that died at the ceiling did
// not prove the captions absent.
func (p *Pipeline) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// lookupMetadata prefers oEmbed and falls back to Open Graph tags in
// the already-fetched watch page. Never fails.
func (p *Pipeline) lookupMetadata(ctx context.Context, logger *slog.Logger, videoID string, pageHTML []byte) *metadata.Video {
	v, err := p.meta.Lookup(ctx, videoID)
	if err == nil {
		return v
	}
	logger.Debug("oembed lookup failed, using watch page", "video_id", videoID, "error", err)
	return metadata.FromWatchPage(videoID, pageHTML)
}
