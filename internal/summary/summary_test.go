package summary

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tubescribe/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider is a canned Provider for Generator tests.
type fakeProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestGenerate_FirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "a", text: "summary from a"}
	second := &fakeProvider{name: "b", text: "summary from b"}
	g := &Generator{providers: []Provider{first, second}, maxInputChars: 100, logger: discardLogger()}

	got, err := g.Generate(context.Background(), Request{PlainText: "Hello World", Title: "T", Channel: "C"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "summary from a" {
		t.Errorf("got %q", got)
	}
	if second.calls != 0 {
		t.Error("second provider should not be called when first succeeds")
	}
}

func TestGenerate_FallsThroughToNextProvider(t *testing.T) {
	first := &fakeProvider{name: "a", err: errors.New("rate limited")}
	second := &fakeProvider{name: "b", text: "summary from b"}
	g := &Generator{providers: []Provider{first, second}, maxInputChars: 100, logger: discardLogger()}

	got, err := g.Generate(context.Background(), Request{PlainText: "Hello"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "summary from b" {
		t.Errorf("got %q", got)
	}
}

func TestGenerate_AllProvidersFail(t *testing.T) {
	g := &Generator{
		providers:     []Provider{&fakeProvider{name: "a", err: errors.New("boom")}},
		maxInputChars: 100,
		logger:        discardLogger(),
	}

	if _, err := g.Generate(context.Background(), Request{PlainText: "Hello"}); err == nil {
		t.Error("expected error when every provider fails")
	}
}

func TestGenerate_NoProviders(t *testing.T) {
	g := NewGenerator(config.SummaryConfig{}, discardLogger())

	if g.Available() {
		t.Error("Available() should be false with no credentials")
	}
	if _, err := g.Generate(context.Background(), Request{PlainText: "Hello"}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("err = %v, want ErrNoProvider", err)
	}
}

func TestNewGenerator_ProviderPriority(t *testing.T) {
	cfg := config.SummaryConfig{}
	cfg.Anthropic.APIKey = "ak"
	cfg.Anthropic.Model = "claude-sonnet-4-5-20250514"
	cfg.OpenAI.APIKey = "ok"
	cfg.OpenAI.Model = "gpt-4o-mini"

	g := NewGenerator(cfg, discardLogger())
	if len(g.providers) != 2 {
		t.Fatalf("got %d providers, want 2", len(g.providers))
	}
	if g.providers[0].Name() != "anthropic" || g.providers[1].Name() != "openai" {
		t.Errorf("priority = [%s %s], want [anthropic openai]", g.providers[0].Name(), g.providers[1].Name())
	}
}

func TestBuildPrompt_SectionsAndClamp(t *testing.T) {
	long := strings.Repeat("x", 20)
	prompt := buildPrompt("Title", "Channel", clampRunes(long, 10))

	for _, section := range []string{"## Key Takeaways", "## Topic Summary", "## Notable Quotes"} {
		if !strings.Contains(prompt, section) {
			t.Errorf("prompt missing section %q", section)
		}
	}
	if !strings.HasSuffix(prompt, strings.Repeat("x", 10)) {
		t.Error("transcript not clamped to limit")
	}
	if !strings.Contains(prompt, "- Title: Title") || !strings.Contains(prompt, "- Channel: Channel") {
		t.Error("prompt missing video information block")
	}
}

func TestClampRunes_MultiByteSafe(t *testing.T) {
	s := "héllo wörld"
	got := clampRunes(s, 4)
	if got != "héll" {
		t.Errorf("clampRunes = %q, want héll", got)
	}
	if got := clampRunes("short", 100); got != "short" {
		t.Errorf("clampRunes should pass through short input, got %q", got)
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "ak" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicAPIVersion {
			t.Errorf("anthropic-version = %q", got)
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "claude-sonnet-4-5-20250514" || req.MaxTokens != maxOutputTokens {
			t.Errorf("request = %+v", req)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "TRANSCRIPT:") {
			t.Errorf("messages = %+v", req.Messages)
		}

		w.Write([]byte(`{"content":[{"type":"text","text":"## Key Takeaways\n- point"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	p := newAnthropicProvider(config.AnthropicConfig{APIKey: "ak", Model: "claude-sonnet-4-5-20250514"}, discardLogger())
	p.baseURL = srv.URL

	got, err := p.Complete(context.Background(), buildPrompt("T", "C", "Hello"))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(got, "## Key Takeaways") {
		t.Errorf("got %q", got)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newAnthropicProvider(config.AnthropicConfig{APIKey: "ak", Model: "m"}, discardLogger())
	p.baseURL = srv.URL

	_, err := p.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != openaiChatPath {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ok" {
			t.Errorf("Authorization = %q", got)
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"## Topic Summary\nthings"},"finish_reason":"stop"}],"usage":{"prompt_tokens":9,"completion_tokens":4}}`))
	}))
	defer srv.Close()

	p := newOpenAIProvider(config.OpenAIConfig{APIKey: "ok", Model: "gpt-4o-mini", BaseURL: srv.URL}, discardLogger())

	got, err := p.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(got, "## Topic Summary") {
		t.Errorf("got %q", got)
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := newOpenAIProvider(config.OpenAIConfig{APIKey: "ok", Model: "m", BaseURL: srv.URL}, discardLogger())

	if _, err := p.Complete(context.Background(), "prompt"); err == nil {
		t.Error("expected error for empty choices")
	}
}
