// Package videoid resolves the canonical 11-character video identifier
// from the URL and ID shapes users paste in.
package videoid

import (
	"regexp"
	"strings"
)

// The identifier alphabet is fixed by the platform: base64url characters,
// always 11 of them.
var (
	reURLForms = regexp.MustCompile(`(?:v=|/v/|youtu\.be/|/embed/)([a-zA-Z0-9_-]{11})`)
	reBareID   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
)

// Resolve extracts a video identifier from input, which may be a full
// watch URL (`watch?v=`), a short link (`youtu.be/`), an embed or `/v/`
// path, or the bare identifier itself. URL shapes are tried first; only
// when none match is the whole trimmed input considered as a bare ID.
// Returns ok=false when nothing matches — the caller treats that as bad
// input, not a fault.
func Resolve(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if m := reURLForms.FindStringSubmatch(input); m != nil {
		return m[1], true
	}
	if reBareID.MatchString(input) {
		return input, true
	}
	return "", false
}

// Valid reports whether id is a well-formed bare identifier.
func Valid(id string) bool {
	return reBareID.MatchString(id)
}
