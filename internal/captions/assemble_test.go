package captions

import (
	"strings"
	"testing"
)

func sampleTranscript() Transcript {
	return Assemble([]TimedSegment{
		{Text: "Hello", OffsetMillis: 1000, DurationMillis: 500},
		{Text: "World", OffsetMillis: 2000, DurationMillis: 500},
	}, "en", false)
}

func TestPlainText_JoinsWithSingleSpaces(t *testing.T) {
	got := sampleTranscript().PlainText()
	want := "Hello World"
	if got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}

func TestTimestampedText_Format(t *testing.T) {
	got := sampleTranscript().TimestampedText()
	want := "[00:01] Hello\n[00:02] World"
	if got != want {
		t.Errorf("TimestampedText() = %q, want %q", got, want)
	}
}

func TestTimestampedText_MinutesUnbounded(t *testing.T) {
	tr := Assemble([]TimedSegment{
		{Text: "still going", OffsetMillis: 7425000},
	}, "en", true)

	got := tr.TimestampedText()
	if !strings.HasPrefix(got, "[123:45]") {
		t.Errorf("TimestampedText() = %q, want [123:45] prefix", got)
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		segments []TimedSegment
		want     int
	}{
		{[]TimedSegment{{Text: "Hello"}, {Text: "World"}}, 2},
		{[]TimedSegment{{Text: "one two three"}}, 3},
		{[]TimedSegment{{Text: "it's state-of-the-art"}}, 2},
		{nil, 0},
	}
	for _, tt := range tests {
		tr := Assemble(tt.segments, "en", false)
		if got := tr.WordCount(); got != tt.want {
			t.Errorf("WordCount() = %d, want %d for %v", got, tt.want, tt.segments)
		}
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := sampleTranscript()
	b := sampleTranscript()

	if a.PlainText() != b.PlainText() {
		t.Error("PlainText differs between identical assemblies")
	}
	if a.TimestampedText() != b.TimestampedText() {
		t.Error("TimestampedText differs between identical assemblies")
	}
	if a.WordCount() != b.WordCount() {
		t.Error("WordCount differs between identical assemblies")
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		millis int64
		want   string
	}{
		{0, "[00:00]"},
		{999, "[00:00]"},
		{1000, "[00:01]"},
		{59999, "[00:59]"},
		{60000, "[01:00]"},
		{61000, "[01:01]"},
		{600000, "[10:00]"},
		{3599000, "[59:59]"},
		{3600000, "[60:00]"},
		{7425000, "[123:45]"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.millis); got != tt.want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", tt.millis, got, tt.want)
		}
	}
}
