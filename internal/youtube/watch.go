package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tubescribe/internal/captions"
	"tubescribe/internal/httpkit"
)

// watchStrategy scrapes the watch page for track metadata and then
// fetches the selected track's payload. The direct, proxied, and
// relay strategies are all instances of this type: they differ only
// in the HTTP client's egress path and an optional URL wrapper that
// routes requests through a CORS relay.
type watchStrategy struct {
	name   string
	client *http.Client
	cookie string
	prefs  []string
	base   string
	wrap   func(target string) string
}

func (s *watchStrategy) Name() string { return s.name }

func (s *watchStrategy) Fetch(ctx context.Context, videoID string) (*Acquisition, error) {
	page, err := s.get(ctx, s.base+videoID)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	tracks, err := extractTracks(page)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, errors.New("page advertises no caption tracks")
	}

	track, ok := captions.SelectTrack(tracks, s.prefs)
	if !ok {
		return nil, errors.New("no selectable caption track")
	}

	raw, err := s.get(ctx, track.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("caption payload %s: %w", track.LanguageCode, err)
	}

	return &Acquisition{
		Tracks:   tracks,
		Selected: track,
		Raw:      raw,
		PageHTML: page,
	}, nil
}

func (s *watchStrategy) get(ctx context.Context, target string) ([]byte, error) {
	if s.wrap != nil {
		target = s.wrap(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if s.cookie != "" {
		// Pre-acknowledged consent avoids the interstitial redirect
		// that would otherwise replace the watch page body.
		req.Header.Set("Cookie", s.cookie)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
