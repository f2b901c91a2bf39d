package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"tubescribe/internal/captions"
	"tubescribe/internal/httpkit"
)

// transcriptAPIStrategy queries a dedicated extraction service that
// returns segments directly, bypassing watch page scraping. Useful
// when the origin blocks every server egress path we control.
type transcriptAPIStrategy struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// transcriptAPIResponse carries pre-parsed segments with times in
// decimal seconds, converted here with the same flooring rule the
// parser applies to the text-time wire format.
type transcriptAPIResponse struct {
	VideoID     string `json:"videoId"`
	Language    string `json:"language"`
	IsGenerated bool   `json:"isGenerated"`
	Segments    []struct {
		Text     string  `json:"text"`
		Start    float64 `json:"start"`
		Duration float64 `json:"duration"`
	} `json:"segments"`
}

func (s *transcriptAPIStrategy) Name() string { return "transcript-api" }

func (s *transcriptAPIStrategy) Fetch(ctx context.Context, videoID string) (*Acquisition, error) {
	reqURL := s.baseURL + "?v=" + url.QueryEscape(videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript api request: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("transcript api error %d: %s", resp.StatusCode, body)
	}

	var payload transcriptAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode transcript api response: %w", err)
	}

	segments := make([]captions.TimedSegment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, captions.TimedSegment{
			Text:           text,
			OffsetMillis:   int64(math.Floor(seg.Start * 1000)),
			DurationMillis: int64(math.Floor(seg.Duration * 1000)),
		})
	}
	if len(segments) == 0 {
		return nil, errors.New("transcript api returned no segments")
	}

	return &Acquisition{
		Selected: captions.Track{
			LanguageCode: payload.Language,
			Generated:    payload.IsGenerated,
		},
		Segments: segments,
	}, nil
}
