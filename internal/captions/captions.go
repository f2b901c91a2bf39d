// Package captions models caption tracks and timed transcript segments,
// and turns raw subtitle payloads into normalized transcripts.
//
// The captioning origin serves two distinct XML wire formats for the same
// content depending on which URL variant produced the payload. Both decode
// into the same TimedSegment sequence here; everything downstream (track
// selection, assembly, persistence) is format-agnostic.
package captions

// Track describes one available caption stream for a video.
type Track struct {
	// LanguageCode is a BCP 47-ish code as the origin reports it
	// ("en", "pt-BR", "zh-Hans").
	LanguageCode string

	// Name is the origin's human-readable label. Logging only; never
	// drives selection.
	Name string

	// Generated is true for speech-recognition tracks, false for
	// human-authored ones.
	Generated bool

	// SourceURL is the opaque locator the payload can be fetched from.
	SourceURL string
}

// TimedSegment is one chunk of transcript text with its position on the
// video timeline. Segments keep the order they appeared in the payload.
type TimedSegment struct {
	Text           string
	OffsetMillis   int64
	DurationMillis int64
}

// Transcript is an ordered segment sequence with its track provenance.
// The text views (PlainText, TimestampedText) are derived from Segments
// on demand, never stored here.
type Transcript struct {
	Segments  []TimedSegment
	Language  string
	Generated bool
}
