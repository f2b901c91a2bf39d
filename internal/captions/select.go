package captions

import (
	"strings"

	"golang.org/x/text/language"
)

// SelectTrack picks the best caption track for transcription. Policy,
// first match wins:
//
//  1. Human-authored tracks in preference-list order.
//  2. Any track (including generated) in preference-list order.
//  3. The first track in the list, whatever it is.
//
// Manual captions beat speech recognition, and the preference list is
// ordered by product priority, not alphabetically. Returns ok=false only
// for an empty track list. Deterministic and side-effect free.
func SelectTrack(tracks []Track, preferred []string) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}

	for _, lang := range preferred {
		for _, tr := range tracks {
			if !tr.Generated && matchesLanguage(tr.LanguageCode, lang) {
				return tr, true
			}
		}
	}

	for _, lang := range preferred {
		for _, tr := range tracks {
			if matchesLanguage(tr.LanguageCode, lang) {
				return tr, true
			}
		}
	}

	return tracks[0], true
}

// matchesLanguage reports whether a track's language code satisfies a
// preferred code. Exact match first, then base-subtag comparison so a
// pt-BR track satisfies a pt preference. Codes the tag parser rejects
// can only match exactly.
func matchesLanguage(code, preferred string) bool {
	if strings.EqualFold(code, preferred) {
		return true
	}

	ct, err := language.Parse(code)
	if err != nil {
		return false
	}
	pt, err := language.Parse(preferred)
	if err != nil {
		return false
	}

	cb, _ := ct.Base()
	pb, _ := pt.Base()
	return cb == pb
}
