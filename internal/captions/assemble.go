package captions

import (
	"fmt"
	"strings"
)

// Assemble wraps parsed segments with their track provenance. The text
// views hang off the Transcript so they always derive from the same
// segment sequence.
func Assemble(segments []TimedSegment, languageCode string, generated bool) Transcript {
	return Transcript{
		Segments:  segments,
		Language:  languageCode,
		Generated: generated,
	}
}

// PlainText joins segment texts with single spaces. No punctuation
// repair; the reading experience is the captioner's problem.
func (t Transcript) PlainText() string {
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// TimestampedText renders one "[MM:SS] text" line per segment.
func (t Transcript) TimestampedText() string {
	var b strings.Builder
	for i, s := range t.Segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatTimestamp(s.OffsetMillis))
		b.WriteByte(' ')
		b.WriteString(s.Text)
	}
	return b.String()
}

// WordCount counts whitespace-delimited tokens in the plain text. This
// undercounts scripts without space delimiters (Chinese, Japanese);
// changing it would change every stored count, so it stays.
func (t Transcript) WordCount() int {
	return len(strings.Fields(t.PlainText()))
}

// FormatTimestamp renders a millisecond offset as "[MM:SS]". There is no
// hour field: past 99 minutes the minute component keeps growing
// ("[123:45]") rather than wrapping.
func FormatTimestamp(offsetMillis int64) string {
	total := offsetMillis / 1000
	return fmt.Sprintf("[%02d:%02d]", total/60, total%60)
}
