// Package youtube acquires caption data for a video despite an origin
// that rate-limits, geofences, and consent-walls automated access.
//
// Acquisition is a chain of interchangeable strategies tried in a
// fixed priority order: a direct fetch of the watch page, the same
// fetch through an alternate egress proxy, a third-party transcript
// API that returns pre-parsed segments, and a CORS relay of last
// resort. Each strategy is bounded by its own attempt timeout and a
// failure simply advances the chain. Only exhaustion of every
// strategy is an error.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"tubescribe/internal/captions"
	"tubescribe/internal/config"
	"tubescribe/internal/httpkit"
)

// watchBaseURL is where the track metadata lives, embedded in HTML.
const watchBaseURL = "https://www.youtube.com/watch?v="

// maxFetchBytes caps watch page and caption payload reads. Watch
// pages run well over a megabyte of inline JSON.
const maxFetchBytes int64 = 10 << 20

// ErrNoCaptions means every acquisition strategy was exhausted
// without producing caption data for the video.
var ErrNoCaptions = errors.New("no captions available")

// Acquisition is the outcome of a successful strategy attempt.
// HTML-scraping strategies populate Tracks, Selected, Raw, and
// PageHTML. The transcript API strategy skips scraping entirely and
// populates Segments instead of Raw.
type Acquisition struct {
	Tracks   []captions.Track
	Selected captions.Track
	Raw      []byte
	Segments []captions.TimedSegment
	PageHTML []byte
	Source   string
}

// Strategy is one concrete technique for reaching caption data. A
// strategy reports an error rather than blocking; the chain treats
// any error as non-fatal and moves to the next strategy.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, videoID string) (*Acquisition, error)
}

// Source runs the strategy chain for caption acquisition.
type Source struct {
	strategies     []Strategy
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// NewSource builds the strategy chain from configuration. The direct
// strategy is always present; proxy, transcript API, and relay
// strategies join the chain only when configured. Strategy order is
// fixed regardless of configuration.
func NewSource(cfg config.YouTubeConfig, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	attempt := time.Duration(cfg.AttemptTimeoutSec) * time.Second
	if attempt <= 0 {
		attempt = 15 * time.Second
	}

	// One limiter paces every outbound acquisition request so that
	// parallel transcriptions cannot stampede the origin.
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	clientOpts := func(extra ...httpkit.ClientOption) []httpkit.ClientOption {
		opts := []httpkit.ClientOption{
			httpkit.WithTimeout(attempt),
			httpkit.WithUserAgent(cfg.UserAgent),
		}
		if limiter != nil {
			opts = append(opts, httpkit.WithRateLimit(limiter))
		}
		return append(opts, extra...)
	}

	strategies := []Strategy{
		&watchStrategy{
			name:   "direct",
			client: httpkit.NewClient(clientOpts()...),
			cookie: cfg.ConsentCookie,
			prefs:  cfg.PreferredLanguages,
			base:   watchBaseURL,
		},
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("youtube: parse proxy url: %w", err)
		}
		strategies = append(strategies, &watchStrategy{
			name:   "proxied",
			client: httpkit.NewClient(clientOpts(httpkit.WithProxy(proxyURL))...),
			cookie: cfg.ConsentCookie,
			prefs:  cfg.PreferredLanguages,
			base:   watchBaseURL,
		})
	}

	if cfg.TranscriptAPI.URL != "" {
		strategies = append(strategies, &transcriptAPIStrategy{
			client:  httpkit.NewClient(clientOpts()...),
			baseURL: cfg.TranscriptAPI.URL,
			apiKey:  cfg.TranscriptAPI.APIKey,
		})
	}

	if cfg.RelayURL != "" {
		relay := cfg.RelayURL
		strategies = append(strategies, &watchStrategy{
			name:   "relay",
			client: httpkit.NewClient(clientOpts()...),
			// Relays strip request cookies, so none is sent.
			prefs: cfg.PreferredLanguages,
			base:  watchBaseURL,
			wrap: func(target string) string {
				return relay + url.QueryEscape(target)
			},
		})
	}

	return &Source{
		strategies:     strategies,
		attemptTimeout: attempt,
		logger:         logger,
	}, nil
}

// Acquire tries each strategy in order until one yields caption data.
// Strategies run strictly sequentially so that egress attribution
// stays deterministic when debugging origin blocks. The caller's
// context carries the overall deadline; each attempt additionally
// gets its own timeout.
func (s *Source) Acquire(ctx context.Context, videoID string) (*Acquisition, error) {
	for _, strat := range s.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		acq, err := strat.Fetch(attemptCtx, videoID)
		cancel()

		if err != nil {
			s.logger.Warn("caption strategy failed",
				"strategy", strat.Name(),
				"video_id", videoID,
				"error", err)
			continue
		}

		s.logger.Debug("caption strategy succeeded",
			"strategy", strat.Name(),
			"video_id", videoID,
			"tracks", len(acq.Tracks),
			"language", acq.Selected.LanguageCode)
		acq.Source = strat.Name()
		return acq, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoCaptions
}

// StrategyNames reports the configured chain in priority order.
func (s *Source) StrategyNames() []string {
	names := make([]string, len(s.strategies))
	for i, strat := range s.strategies {
		names[i] = strat.Name()
	}
	return names
}
