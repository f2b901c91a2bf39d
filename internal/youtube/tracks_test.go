package youtube

import (
	"strings"
	"testing"
)

// playerPage wraps a captionTracks JSON array in a minimal watch page
// shell, with audioTracks following as on the real player response.
func playerPage(tracksJSON string) []byte {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Watch</title></head><body><script>`)
	b.WriteString(`var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":`)
	b.WriteString(tracksJSON)
	b.WriteString(`,"audioTracks":[{"captionTrackIndices":[0]}],"translationLanguages":[]}},"videoDetails":{"videoId":"dQw4w9WgXcQ"}};`)
	b.WriteString(`</script></body></html>`)
	return []byte(b.String())
}

func TestExtractTracks_SimpleTextName(t *testing.T) {
	page := playerPage(`[{"baseUrl":"https://example.com/api/timedtext?lang=en","name":{"simpleText":"English"},"languageCode":"en","vssId":".en"}]`)

	tracks, err := extractTracks(page)
	if err != nil {
		t.Fatalf("extractTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(tracks))
	}
	tr := tracks[0]
	if tr.LanguageCode != "en" || tr.Name != "English" || tr.Generated {
		t.Errorf("track = %+v", tr)
	}
	if tr.SourceURL != "https://example.com/api/timedtext?lang=en" {
		t.Errorf("SourceURL = %q", tr.SourceURL)
	}
}

func TestExtractTracks_RunsNameAndASRKind(t *testing.T) {
	page := playerPage(`[{"baseUrl":"https://example.com/t?lang=pt","name":{"runs":[{"text":"Portuguese (auto-generated)"}]},"languageCode":"pt","kind":"asr"}]`)

	tracks, err := extractTracks(page)
	if err != nil {
		t.Fatalf("extractTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks, want 1", len(tracks))
	}
	if !tracks[0].Generated {
		t.Error("kind=asr should mark track as generated")
	}
	if tracks[0].Name != "Portuguese (auto-generated)" {
		t.Errorf("Name = %q", tracks[0].Name)
	}
}

func TestExtractTracks_TranslationLanguagesAnchor(t *testing.T) {
	// Some page variants omit audioTracks entirely.
	page := []byte(`<html><script>{"captionTracks":[{"baseUrl":"https://example.com/t","languageCode":"ja"}],"translationLanguages":[{"languageCode":"en"}]}</script></html>`)

	tracks, err := extractTracks(page)
	if err != nil {
		t.Fatalf("extractTracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].LanguageCode != "ja" {
		t.Errorf("tracks = %+v", tracks)
	}
}

func TestExtractTracks_UnicodeEscapedURL(t *testing.T) {
	// The player response escapes ampersands as &; the JSON decoder
	// must hand back a directly fetchable URL.
	page := playerPage(`[{"baseUrl":"https://example.com/t?v=abc&lang=en&fmt=srv3","languageCode":"en"}]`)

	tracks, err := extractTracks(page)
	if err != nil {
		t.Fatalf("extractTracks: %v", err)
	}
	want := "https://example.com/t?v=abc&lang=en&fmt=srv3"
	if tracks[0].SourceURL != want {
		t.Errorf("SourceURL = %q, want %q", tracks[0].SourceURL, want)
	}
}

func TestExtractTracks_NoMarker(t *testing.T) {
	tracks, err := extractTracks([]byte(`<html><body>plain page, no player response</body></html>`))
	if err != nil {
		t.Fatalf("extractTracks: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("got %d tracks, want 0", len(tracks))
	}
}

func TestExtractTracks_MalformedJSONFailsClosed(t *testing.T) {
	page := []byte(`{"captionTracks":[{"baseUrl": busted],"audioTracks":[]}`)

	if _, err := extractTracks(page); err == nil {
		t.Error("expected error for unparseable track metadata")
	}
}

func TestExtractTracks_SkipsEntriesMissingFields(t *testing.T) {
	page := playerPage(`[{"baseUrl":"","languageCode":"en"},{"baseUrl":"https://example.com/t","languageCode":""},{"baseUrl":"https://example.com/ok","languageCode":"ko"}]`)

	tracks, err := extractTracks(page)
	if err != nil {
		t.Fatalf("extractTracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].LanguageCode != "ko" {
		t.Errorf("tracks = %+v, want single ko entry", tracks)
	}
}
