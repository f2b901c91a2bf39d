package captions

import "testing"

var testPrefs = []string{"pt", "en", "es", "fr", "de", "it", "ja", "ko", "zh"}

func TestSelectTrack_ManualBeatsGenerated(t *testing.T) {
	tracks := []Track{
		{LanguageCode: "en", Generated: true},
		{LanguageCode: "pt", Generated: false},
		{LanguageCode: "es", Generated: false},
	}

	got, ok := SelectTrack(tracks, testPrefs)
	if !ok {
		t.Fatal("expected a selection")
	}
	if got.LanguageCode != "pt" || got.Generated {
		t.Errorf("selected %+v, want manual pt", got)
	}
}

func TestSelectTrack_PreferenceOrderOutermost(t *testing.T) {
	// en appears before pt in the track list, but pt outranks en in the
	// preference list and must win.
	tracks := []Track{
		{LanguageCode: "en", Generated: false},
		{LanguageCode: "pt", Generated: false},
	}

	got, _ := SelectTrack(tracks, testPrefs)
	if got.LanguageCode != "pt" {
		t.Errorf("selected %q, want pt", got.LanguageCode)
	}
}

func TestSelectTrack_GeneratedWhenNoManualMatches(t *testing.T) {
	tracks := []Track{
		{LanguageCode: "en", Generated: true},
		{LanguageCode: "ru", Generated: false}, // manual but not preferred
	}

	got, _ := SelectTrack(tracks, testPrefs)
	if got.LanguageCode != "en" || !got.Generated {
		t.Errorf("selected %+v, want generated en", got)
	}
}

func TestSelectTrack_UltimateFallbackFirstTrack(t *testing.T) {
	tracks := []Track{
		{LanguageCode: "ja", Generated: true},
	}

	got, ok := SelectTrack(tracks, []string{"xx"})
	if !ok {
		t.Fatal("expected a selection")
	}
	if got.LanguageCode != "ja" {
		t.Errorf("selected %q, want first track ja", got.LanguageCode)
	}
}

func TestSelectTrack_Empty(t *testing.T) {
	if _, ok := SelectTrack(nil, testPrefs); ok {
		t.Error("empty track list should not select")
	}
}

func TestSelectTrack_RegionalVariantMatchesBase(t *testing.T) {
	tracks := []Track{
		{LanguageCode: "en", Generated: true},
		{LanguageCode: "pt-BR", Generated: false},
	}

	got, _ := SelectTrack(tracks, testPrefs)
	if got.LanguageCode != "pt-BR" {
		t.Errorf("selected %q, want pt-BR via base-language match", got.LanguageCode)
	}
}

func TestMatchesLanguage(t *testing.T) {
	tests := []struct {
		code, preferred string
		want            bool
	}{
		{"en", "en", true},
		{"EN", "en", true},
		{"pt-BR", "pt", true},
		{"zh-Hans", "zh", true},
		{"en", "pt", false},
		{"", "en", false},
	}
	for _, tt := range tests {
		if got := matchesLanguage(tt.code, tt.preferred); got != tt.want {
			t.Errorf("matchesLanguage(%q, %q) = %v, want %v", tt.code, tt.preferred, got, tt.want)
		}
	}
}
