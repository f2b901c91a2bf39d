package youtube

import (
	"encoding/json"
	"fmt"
	"regexp"

	"tubescribe/internal/captions"
)

// The track list is embedded in the watch page as a JSON array inside
// the player response blob. Depending on the page variant the array
// is followed by either an audioTracks or a translationLanguages key;
// anchoring on the trailing key keeps the non-greedy match from
// stopping at a bracket nested inside a track's name runs.
var (
	reTracksAudio       = regexp.MustCompile(`(?s)"captionTracks":(\[.*?\]),"audioTracks"`)
	reTracksTranslation = regexp.MustCompile(`(?s)"captionTracks":(\[.*?\]),"translationLanguages"`)
)

// captionTrackJSON mirrors one entry of the embedded track array.
type captionTrackJSON struct {
	BaseURL      string    `json:"baseUrl"`
	LanguageCode string    `json:"languageCode"`
	Kind         string    `json:"kind"`
	Name         trackName `json:"name"`
}

// trackName appears either as {"simpleText": "..."} or as
// {"runs": [{"text": "..."}]} depending on the page variant.
type trackName struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (n trackName) text() string {
	if n.SimpleText != "" {
		return n.SimpleText
	}
	if len(n.Runs) > 0 {
		return n.Runs[0].Text
	}
	return ""
}

// extractTracks scans watch page HTML for the embedded caption track
// list. A page without the marker returns an empty list and no error
// (the video simply has no captions on this egress). A marker whose
// JSON fails to parse is an error: the page layout has drifted and
// the result cannot be trusted.
func extractTracks(page []byte) ([]captions.Track, error) {
	m := reTracksAudio.FindSubmatch(page)
	if m == nil {
		m = reTracksTranslation.FindSubmatch(page)
	}
	if m == nil {
		return nil, nil
	}

	var entries []captionTrackJSON
	if err := json.Unmarshal(m[1], &entries); err != nil {
		return nil, fmt.Errorf("caption track metadata: %w", err)
	}

	tracks := make([]captions.Track, 0, len(entries))
	for _, e := range entries {
		if e.BaseURL == "" || e.LanguageCode == "" {
			continue
		}
		tracks = append(tracks, captions.Track{
			LanguageCode: e.LanguageCode,
			Name:         e.Name.text(),
			Generated:    e.Kind == "asr",
			SourceURL:    e.BaseURL,
		})
	}
	return tracks, nil
}
