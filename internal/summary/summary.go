// Package summary turns assembled transcript text into structured
// prose via an LLM provider. Generation is always best-effort: a
// transcription is complete without its summary, so every failure
// here surfaces as a value for the caller to record, never as a
// pipeline abort.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tubescribe/internal/config"
)

// DefaultMaxInputChars clamps transcript text before transmission so
// a ten-hour video cannot produce an unbounded request body.
const DefaultMaxInputChars = 50000

// ErrNoProvider means no provider credential is configured.
var ErrNoProvider = errors.New("no summary provider configured")

// Provider is one LLM backend. Implementations share the same prompt
// and output contract and differ only in wire format.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request carries the transcript and display metadata for prompting.
type Request struct {
	PlainText string
	Title     string
	Channel   string
}

// Generator selects among configured providers in a fixed priority
// order (Anthropic, then OpenAI) and produces summaries.
type Generator struct {
	providers     []Provider
	maxInputChars int
	logger        *slog.Logger
}

// NewGenerator builds a Generator from configuration. Providers
// without an API key are left out of the chain entirely.
func NewGenerator(cfg config.SummaryConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}

	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}

	var providers []Provider
	if cfg.Anthropic.APIKey != "" {
		providers = append(providers, newAnthropicProvider(cfg.Anthropic, logger))
	}
	if cfg.OpenAI.APIKey != "" {
		providers = append(providers, newOpenAIProvider(cfg.OpenAI, logger))
	}

	return &Generator{
		providers:     providers,
		maxInputChars: maxChars,
		logger:        logger,
	}
}

// Available reports whether at least one provider is configured.
func (g *Generator) Available() bool {
	return len(g.providers) > 0
}

// Generate produces a summary for the transcript. Providers are tried
// in priority order; the first success wins. All-providers-failed
// returns the last error for the caller to record as the unavailable
// reason.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if len(g.providers) == 0 {
		return "", ErrNoProvider
	}

	prompt := buildPrompt(req.Title, req.Channel, clampRunes(req.PlainText, g.maxInputChars))

	var lastErr error
	for _, p := range g.providers {
		text, err := p.Complete(ctx, prompt)
		if err != nil {
			g.logger.Warn("summary provider failed", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			lastErr = fmt.Errorf("%s returned an empty summary", p.Name())
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// buildPrompt asks for three fixed sections and a reply in the
// transcript's own language. Both providers receive this verbatim.
func buildPrompt(title, channel, text string) string {
	var b strings.Builder
	b.WriteString("Analyze the transcript below from a YouTube video and produce an organized summary.\n\n")
	b.WriteString("VIDEO INFORMATION:\n")
	b.WriteString("- Title: " + title + "\n")
	b.WriteString("- Channel: " + channel + "\n\n")
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Detect the language of the transcript and write the summary IN THE SAME LANGUAGE as the video.\n")
	b.WriteString("2. Use exactly this structure:\n\n")
	b.WriteString("## Key Takeaways\n")
	b.WriteString("(the most important points covered, as a list)\n\n")
	b.WriteString("## Topic Summary\n")
	b.WriteString("(the content organized by topic, with timestamps where relevant)\n\n")
	b.WriteString("## Notable Quotes\n")
	b.WriteString("(memorable quotes, striking data points, or unique insights)\n\n")
	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(text)
	return b.String()
}

// clampRunes cuts s to at most max runes without splitting a
// multi-byte character.
func clampRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count >= max {
			return s[:i]
		}
		count++
	}
	return s
}
