// Package report renders completed transcriptions as markdown
// documents, with an HTML rendering for browser delivery.
package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"tubescribe/internal/pipeline"
)

// Options control document layout.
type Options struct {
	// Timestamps selects the fenced timestamped transcript over the
	// plain-text one.
	Timestamps bool

	// Now stamps the "Processed" row. Zero means time.Now.
	Now time.Time
}

// Build renders res as a markdown report: title, metadata table,
// summary when present, then the full transcript.
func Build(res *pipeline.Result, opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	kind := "manual"
	if res.Generated {
		kind = "auto-generated"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", res.Title)
	b.WriteString("| Info | Detail |\n")
	b.WriteString("|------|--------|\n")
	fmt.Fprintf(&b, "| **Channel** | %s |\n", res.Channel)
	fmt.Fprintf(&b, "| **Video** | https://www.youtube.com/watch?v=%s |\n", res.VideoID)
	fmt.Fprintf(&b, "| **Language** | %s (%s) |\n", res.Language, kind)
	fmt.Fprintf(&b, "| **Words** | %d |\n", res.WordCount)
	if res.Elapsed > 0 {
		fmt.Fprintf(&b, "| **Processing time** | %s |\n", res.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "| **Processed** | %s |\n", now.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString("\n---\n\n")

	if res.Summary != "" {
		b.WriteString(res.Summary)
		b.WriteString("\n\n---\n\n")
	}

	b.WriteString("## Full Transcript\n\n")
	if opts.Timestamps && res.TimestampedText != "" {
		b.WriteString("```\n")
		b.WriteString(res.TimestampedText)
		b.WriteString("\n```\n")
	} else {
		b.WriteString(res.PlainText)
		b.WriteString("\n")
	}

	return b.String()
}

// RenderHTML converts a markdown report into a standalone HTML
// document. The output carries no external resources.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown to HTML: %w", err)
	}

	// Wrap in minimal HTML envelope.
	html := fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Transcription</title></head>
<body style="font-family: sans-serif; font-size: 14px; line-height: 1.5; max-width: 48rem; margin: 2rem auto; padding: 0 1rem;">
%s
</body></html>`, buf.String())

	return html, nil
}

// Patterns for deriving filenames from titles. \p{L}\p{N} rather than
// \w so titles in any script keep their letters.
var (
	reUnsafe     = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Filename derives a filesystem-safe stem from a video title: unsafe
// runes dropped, capped at 60 runes, whitespace runs collapsed to
// single underscores.
func Filename(title string) string {
	s := reUnsafe.ReplaceAllString(title, "")
	if r := []rune(s); len(r) > 60 {
		s = string(r[:60])
	}
	s = strings.TrimSpace(s)
	s = reWhitespace.ReplaceAllString(s, "_")
	if s == "" {
		return "transcript"
	}
	return s
}
