package captions

import (
	"encoding/xml"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Format identifies which wire format a payload decoded as.
type Format string

const (
	// FormatParagraphTime is the newer format: integer-millisecond t/d
	// attributes on repeated paragraph tags, often with nested styling.
	FormatParagraphTime Format = "paragraph-time"

	// FormatTextTime is the older format: decimal-second start/dur
	// attributes on repeated text tags.
	FormatTextTime Format = "text-time"

	// FormatUnknown means neither decoder produced a segment.
	FormatUnknown Format = ""
)

// markupRe matches styling tags embedded in segment text, both the real
// nested ones from paragraph-time payloads and the ones that only appear
// after entity decoding.
var markupRe = regexp.MustCompile(`<[^>]+>`)

// newlineRe matches line breaks inside a single segment's text.
var newlineRe = regexp.MustCompile(`\r?\n`)

// ParseSegments decodes a raw caption payload into ordered segments,
// auto-detecting the wire format: paragraph-time is tried first, then
// text-time when it yielded nothing. A malformed document counts as
// yielding nothing — the other decoder still gets its chance. An empty
// result from both means the payload is unusable; the caller decides
// what that failure is called.
func ParseSegments(raw []byte) ([]TimedSegment, Format) {
	if segs := parseParagraphTime(raw); len(segs) > 0 {
		return segs, FormatParagraphTime
	}
	if segs := parseTextTime(raw); len(segs) > 0 {
		return segs, FormatTextTime
	}
	return nil, FormatUnknown
}

// parseParagraphTime decodes payloads shaped like
// <timedtext><body><p t="1000" d="500">Hello</p>...</body></timedtext>.
// The root element name is not checked; only body/p structure matters.
func parseParagraphTime(raw []byte) []TimedSegment {
	var doc struct {
		Body struct {
			Paragraphs []struct {
				T     int64  `xml:"t,attr"`
				D     int64  `xml:"d,attr"`
				Inner string `xml:",innerxml"`
			} `xml:"p"`
		} `xml:"body"`
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	segments := make([]TimedSegment, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		text := normalizeSegmentText(p.Inner)
		if text == "" {
			continue
		}
		segments = append(segments, TimedSegment{
			Text:           text,
			OffsetMillis:   p.T,
			DurationMillis: p.D,
		})
	}
	return segments
}

// parseTextTime decodes payloads shaped like
// <transcript><text start="1.0" dur="0.5">Hello</text>...</transcript>.
// Times floor to integer milliseconds after scaling; a segment with an
// unparseable start attribute is skipped rather than failing the whole
// payload.
func parseTextTime(raw []byte) []TimedSegment {
	var doc struct {
		Texts []struct {
			Start string `xml:"start,attr"`
			Dur   string `xml:"dur,attr"`
			Inner string `xml:",innerxml"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	segments := make([]TimedSegment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := normalizeSegmentText(t.Inner)
		if text == "" {
			continue
		}

		start, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			continue
		}
		// dur is sometimes absent on the last segment; zero is fine.
		dur, _ := strconv.ParseFloat(t.Dur, 64)

		segments = append(segments, TimedSegment{
			Text:           text,
			OffsetMillis:   int64(math.Floor(start * 1000)),
			DurationMillis: int64(math.Floor(dur * 1000)),
		})
	}
	return segments
}

// normalizeSegmentText turns a raw inner payload into display text:
// two entity-decoding passes (the origin double-encodes), then markup
// stripping, newline collapsing, and a trim. Decoding before stripping
// matters — styling tags usually arrive entity-encoded and only become
// strippable after the first decode.
func normalizeSegmentText(inner string) string {
	s := DecodeEntities(DecodeEntities(inner))
	s = markupRe.ReplaceAllString(s, "")
	s = newlineRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
