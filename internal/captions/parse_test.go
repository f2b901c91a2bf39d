package captions

import "testing"

func TestParseSegments_ParagraphTime(t *testing.T) {
	raw := []byte(`<?xml version="1.0" encoding="utf-8"?>
<timedtext format="3">
<body>
<p t="1000" d="500">Hello</p>
<p t="2000" d="500">World</p>
</body>
</timedtext>`)

	segs, format := ParseSegments(raw)
	if format != FormatParagraphTime {
		t.Fatalf("format = %q, want %q", format, FormatParagraphTime)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Text != "Hello" || segs[0].OffsetMillis != 1000 || segs[0].DurationMillis != 500 {
		t.Errorf("segs[0] = %+v", segs[0])
	}
	if segs[1].Text != "World" || segs[1].OffsetMillis != 2000 {
		t.Errorf("segs[1] = %+v", segs[1])
	}
}

func TestParseSegments_TextTime(t *testing.T) {
	raw := []byte(`<transcript>
<text start="0.0" dur="1.5">First line</text>
<text start="1.5" dur="2.25">Second line</text>
</transcript>`)

	segs, format := ParseSegments(raw)
	if format != FormatTextTime {
		t.Fatalf("format = %q, want %q", format, FormatTextTime)
	}
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].OffsetMillis != 0 || segs[0].DurationMillis != 1500 {
		t.Errorf("segs[0] = %+v", segs[0])
	}
	if segs[1].OffsetMillis != 1500 || segs[1].DurationMillis != 2250 {
		t.Errorf("segs[1] = %+v", segs[1])
	}
}

func TestParseSegments_TextTimeFloorsMillis(t *testing.T) {
	raw := []byte(`<transcript><text start="1.999" dur="0.0009">x</text></transcript>`)

	segs, _ := ParseSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].OffsetMillis != 1999 {
		t.Errorf("offset = %d, want 1999", segs[0].OffsetMillis)
	}
	if segs[0].DurationMillis != 0 {
		t.Errorf("duration = %d, want 0 (floored)", segs[0].DurationMillis)
	}
}

func TestParseSegments_NestedMarkupStripped(t *testing.T) {
	raw := []byte(`<timedtext><body><p t="0" d="100">Wor<s>ld</s> peace</p></body></timedtext>`)

	segs, _ := ParseSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Text != "World peace" {
		t.Errorf("text = %q, want %q", segs[0].Text, "World peace")
	}
}

func TestParseSegments_DoubleEncodedEntities(t *testing.T) {
	raw := []byte(`<transcript><text start="0" dur="1">It&amp;#39;s &amp;quot;fine&amp;quot;</text></transcript>`)

	segs, _ := ParseSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Text != `It's "fine"` {
		t.Errorf("text = %q, want %q", segs[0].Text, `It's "fine"`)
	}
}

func TestParseSegments_EncodedStylingTagsStripped(t *testing.T) {
	// Styling tags arrive entity-encoded in text-time payloads; they must
	// decode and then disappear.
	raw := []byte(`<transcript><text start="0" dur="1">&lt;i&gt;whispered&lt;/i&gt; aloud</text></transcript>`)

	segs, _ := ParseSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Text != "whispered aloud" {
		t.Errorf("text = %q, want %q", segs[0].Text, "whispered aloud")
	}
}

func TestParseSegments_DropsEmptySegments(t *testing.T) {
	raw := []byte(`<transcript><text start="0" dur="1">   </text></transcript>`)

	segs, format := ParseSegments(raw)
	if len(segs) != 0 {
		t.Errorf("got %d segments, want 0", len(segs))
	}
	if format != FormatUnknown {
		t.Errorf("format = %q, want unknown for an empty yield", format)
	}
}

func TestParseSegments_NewlinesCollapsed(t *testing.T) {
	raw := []byte("<transcript><text start=\"0\" dur=\"1\">line one\nline two</text></transcript>")

	segs, _ := ParseSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Text != "line one line two" {
		t.Errorf("text = %q", segs[0].Text)
	}
}

func TestParseSegments_MissingDur(t *testing.T) {
	// The final segment of a text-time payload sometimes has no dur.
	raw := []byte(`<transcript><text start="10.5">tail</text></transcript>`)

	segs, _ := ParseSegments(raw)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].OffsetMillis != 10500 || segs[0].DurationMillis != 0 {
		t.Errorf("segs[0] = %+v", segs[0])
	}
}

func TestParseSegments_PreservesEncounterOrder(t *testing.T) {
	// Out-of-order offsets stay out of order; the parser never sorts.
	raw := []byte(`<transcript>
<text start="5.0" dur="1">later</text>
<text start="1.0" dur="1">earlier</text>
</transcript>`)

	segs, _ := ParseSegments(raw)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Text != "later" || segs[1].Text != "earlier" {
		t.Errorf("order changed: %+v", segs)
	}
}

func TestParseSegments_Garbage(t *testing.T) {
	for _, raw := range []string{"", "not xml at all", "<html><body>nope</body></html>"} {
		segs, format := ParseSegments([]byte(raw))
		if len(segs) != 0 || format != FormatUnknown {
			t.Errorf("ParseSegments(%q) = %d segments, format %q", raw, len(segs), format)
		}
	}
}

func TestParseSegments_ParagraphTimePreferredOverTextTime(t *testing.T) {
	// A paragraph-time document that also happens to contain stray text
	// elements must still be read as paragraph-time.
	raw := []byte(`<timedtext><body><p t="0" d="100">para</p></body></timedtext>`)

	_, format := ParseSegments(raw)
	if format != FormatParagraphTime {
		t.Errorf("format = %q, want %q", format, FormatParagraphTime)
	}
}
