// Package metadata resolves video title and channel information.
// The primary source is YouTube's public oEmbed endpoint, which needs
// no API key. When a watch page has already been downloaded for
// caption discovery, its Open Graph tags serve as a free fallback so
// we never fetch the same page twice.
package metadata

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// UnknownValue fills metadata fields that no source could resolve.
// Lookups are best-effort: a transcript is still useful without them.
const UnknownValue = "Unknown"

// Video holds display metadata for a single video.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	ChannelURL   string `json:"channel_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Unknown returns a Video with every descriptive field defaulted.
func Unknown(videoID string) *Video {
	return &Video{
		ID:      videoID,
		Title:   UnknownValue,
		Channel: UnknownValue,
	}
}

// FromWatchPage extracts metadata from an already-fetched watch page.
// Missing fields default to UnknownValue. Never returns nil.
func FromWatchPage(videoID string, pageHTML []byte) *Video {
	v := Unknown(videoID)
	if len(pageHTML) == 0 {
		return v
	}

	doc, err := html.Parse(bytes.NewReader(pageHTML))
	if err != nil {
		return v
	}

	if title := findMetaContent(doc, "property", "og:title"); title != "" {
		v.Title = title
	}
	if channel := findLinkItemprop(doc, "name"); channel != "" {
		v.Channel = channel
	}
	if thumb := findMetaContent(doc, "property", "og:image"); thumb != "" {
		v.ThumbnailURL = thumb
	}
	return v
}

// findMetaContent walks the DOM for <meta key=val content=...>.
func findMetaContent(n *html.Node, key, val string) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Meta {
		var matched bool
		var content string
		for _, a := range n.Attr {
			if a.Key == key && strings.EqualFold(a.Val, val) {
				matched = true
			}
			if a.Key == "content" {
				content = a.Val
			}
		}
		if matched {
			return strings.TrimSpace(content)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := findMetaContent(c, key, val); s != "" {
			return s
		}
	}
	return ""
}

// findLinkItemprop walks the DOM for <link itemprop=val content=...>.
// YouTube watch pages carry the channel name this way.
func findLinkItemprop(n *html.Node, val string) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Link {
		var matched bool
		var content string
		for _, a := range n.Attr {
			if a.Key == "itemprop" && strings.EqualFold(a.Val, val) {
				matched = true
			}
			if a.Key == "content" {
				content = a.Val
			}
		}
		if matched {
			return strings.TrimSpace(content)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := findLinkItemprop(c, val); s != "" {
			return s
		}
	}
	return ""
}
