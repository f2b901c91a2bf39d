package report

import (
	"strings"
	"testing"
	"time"

	"tubescribe/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		VideoID:         "dQw4w9WgXcQ",
		Title:           "Test Video",
		Channel:         "Test Channel",
		Language:        "en",
		Generated:       true,
		PlainText:       "Hello there General Kenobi",
		TimestampedText: "[00:00] Hello there\n[00:01] General Kenobi",
		WordCount:       4,
		Summary:         "## Key Takeaways\n- greetings exchanged",
	}
}

func TestBuild_FullLayout(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	md := Build(sampleResult(), Options{Timestamps: true, Now: now})

	for _, want := range []string{
		"# Test Video",
		"| **Channel** | Test Channel |",
		"| **Video** | https://www.youtube.com/watch?v=dQw4w9WgXcQ |",
		"| **Language** | en (auto-generated) |",
		"| **Words** | 4 |",
		"| **Processed** | 2025-03-01 12:30 UTC |",
		"## Key Takeaways",
		"## Full Transcript",
		"```\n[00:00] Hello there",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q\n%s", want, md)
		}
	}
}

func TestBuild_PlainTranscriptWithoutTimestamps(t *testing.T) {
	md := Build(sampleResult(), Options{Timestamps: false})

	if strings.Contains(md, "```") {
		t.Error("plain report contains a fenced block")
	}
	if !strings.Contains(md, "Hello there General Kenobi") {
		t.Error("plain transcript missing")
	}
	if strings.Contains(md, "[00:00]") {
		t.Error("timestamps leaked into plain report")
	}
}

func TestBuild_NoSummarySection(t *testing.T) {
	res := sampleResult()
	res.Summary = ""
	md := Build(res, Options{Timestamps: true})

	if strings.Contains(md, "Key Takeaways") {
		t.Error("summary section present without a summary")
	}
	if got := strings.Count(md, "\n---\n"); got != 1 {
		t.Errorf("separator count = %d, want 1", got)
	}
}

func TestBuild_ManualLanguageLabel(t *testing.T) {
	res := sampleResult()
	res.Generated = false
	md := Build(res, Options{})

	if !strings.Contains(md, "| **Language** | en (manual) |") {
		t.Errorf("language row wrong:\n%s", md)
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("# Title\n\nSome **bold** text.")
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<h1",
		"<strong>bold</strong>",
		"charset=\"utf-8\"",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestFilename(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Hello, World! (2024)", "Hello_World_2024"},
		{"  spaced   out  ", "spaced_out"},
		{"Como Fazer Pão", "Como_Fazer_Pão"},
		{"slash/and\\backslash", "slashandbackslash"},
		{"", "transcript"},
		{"!!!???", "transcript"},
		{strings.Repeat("a", 70), strings.Repeat("a", 60)},
	}
	for _, c := range cases {
		if got := Filename(c.title); got != c.want {
			t.Errorf("Filename(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}
