// Package feed lists a channel's recent uploads from its public Atom
// feed. The feed endpoint needs no API key and serves the latest
// uploads only.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"tubescribe/internal/httpkit"
	"tubescribe/internal/videoid"
)

// DefaultFeedBaseURL is the public per-channel Atom feed.
const DefaultFeedBaseURL = "https://www.youtube.com/feeds/videos.xml"

const fetchTimeout = 15 * time.Second

// VideoEntry is one upload in a channel feed.
type VideoEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Published time.Time `json:"published"`
}

// Client fetches channel feeds.
type Client struct {
	parser  *gofeed.Parser
	baseURL string
}

// NewClient returns a feed client. baseURL "" selects the public
// endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultFeedBaseURL
	}
	p := gofeed.NewParser()
	p.Client = httpkit.NewClient(httpkit.WithTimeout(fetchTimeout))
	return &Client{parser: p, baseURL: baseURL}
}

// RecentVideos returns the channel's feed entries in feed order,
// newest first. Entry ids carry a "yt:video:" prefix in the feed and
// come back normalized; entries that do not resolve to a video id are
// dropped.
func (c *Client) RecentVideos(ctx context.Context, channelID string) ([]VideoEntry, error) {
	feedURL := c.baseURL + "?channel_id=" + url.QueryEscape(channelID)
	f, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch channel feed: %w", err)
	}

	entries := make([]VideoEntry, 0, len(f.Items))
	for _, item := range f.Items {
		id := strings.TrimPrefix(item.GUID, "yt:video:")
		if !videoid.Valid(id) {
			continue
		}
		e := VideoEntry{ID: id, Title: item.Title}
		if item.PublishedParsed != nil {
			e.Published = item.PublishedParsed.UTC()
		}
		entries = append(entries, e)
	}
	return entries, nil
}
