package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tubescribe/internal/httpkit"
)

// DefaultOEmbedURL is YouTube's keyless oEmbed endpoint.
const DefaultOEmbedURL = "https://www.youtube.com/oembed"

// DefaultTimeout bounds a single oEmbed request.
const DefaultTimeout = 10 * time.Second

// Client looks up video metadata via the oEmbed endpoint.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a metadata client. An empty baseURL uses the
// public YouTube endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultOEmbedURL
	}
	return &Client{
		http: httpkit.NewClient(
			httpkit.WithTimeout(DefaultTimeout),
		),
		baseURL: baseURL,
	}
}

// oembedResponse is the subset of the oEmbed payload we use.
type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Lookup fetches title and channel for a video. Callers should treat
// errors as non-fatal and fall back to Unknown or FromWatchPage.
func (c *Client) Lookup(ctx context.Context, videoID string) (*Video, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	reqURL := c.baseURL + "?url=" + url.QueryEscape(watchURL) + "&format=json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("metadata: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata: oembed request: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("metadata: oembed error %d: %s", resp.StatusCode, body)
	}

	var payload oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("metadata: decode oembed: %w", err)
	}

	v := Unknown(videoID)
	if payload.Title != "" {
		v.Title = payload.Title
	}
	if payload.AuthorName != "" {
		v.Channel = payload.AuthorName
	}
	v.ChannelURL = payload.AuthorURL
	v.ThumbnailURL = payload.ThumbnailURL
	return v, nil
}
