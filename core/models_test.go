package core

import (
	"strings"
	"testing"
)

func TestParseSourceType(t *testing.T) {
	cases := []struct {
		in      string
		want    SourceType
		wantErr bool
	}{
		{"audio", SourceAudio, false},
		{"AUDIO", SourceAudio, false},
		{"remote", SourceRemote, false},
		{"youtube", SourceRemote, false},
		{"link", SourceRemote, false},
		{"live", SourceLive, false},
		{" live ", SourceLive, false},
		{"", SourceUnknown, true},
		{"video", SourceUnknown, true},
	}
	for _, tc := range cases {
		got, err := ParseSourceType(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseSourceType(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseSourceType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSegmentIdentity(t *testing.T) {
	a := Segment{Start: 0, End: 1.5, Text: "hello"}
	b := Segment{Start: 0, End: 1.5, Text: "hello", OriginalIndex: 7}
	c := Segment{Start: 0, End: 1.5, Text: "goodbye"}

	if a.Identity() != b.Identity() {
		t.Error("identity should ignore original index")
	}
	if a.Identity() == c.Identity() {
		t.Error("different text must yield a different identity")
	}
	if len(a.Identity()) != 32 {
		t.Errorf("identity length = %d, want 32 hex chars", len(a.Identity()))
	}
}

func TestTranscriptIDFromPath(t *testing.T) {
	id := TranscriptIDFromPath("/data/Episode One.wav")
	if !strings.HasPrefix(id, "episode one_") {
		t.Errorf("id = %q, want lowercased base name prefix", id)
	}
	if id != TranscriptIDFromPath("/data/Episode One.wav") {
		t.Error("id not stable for the same path")
	}
	if id == TranscriptIDFromPath("/other/Episode One.wav") {
		t.Error("same base name in a different directory must differ")
	}
}

func TestMissingMarker(t *testing.T) {
	if !IsMissing(Missing) {
		t.Error("marker not recognized as missing")
	}
	if IsMissing(0) || IsMissing(-1.5) {
		t.Error("ordinary values flagged as missing")
	}
	// The marker never compares equal, so joins must go through IsMissing.
	if Missing == Missing {
		t.Error("marker unexpectedly comparable")
	}
}

func TestRepresentativeSetText(t *testing.T) {
	set := RepresentativeSet{Chunks: []Chunk{
		{Text: "first part."},
		{Text: "second part."},
	}}
	if got := set.Text(); got != "first part. second part." {
		t.Errorf("joined text = %q", got)
	}
}

func TestStateWarnAndFail(t *testing.T) {
	st := PipelineState{}
	st = st.Warn("column %s dropped", "mean_pitch")
	if len(st.Warnings) != 1 || st.Warnings[0] != "column mean_pitch dropped" {
		t.Errorf("warnings = %v", st.Warnings)
	}

	st = st.Fail(MissingInput("analyze", "no segments"))
	if st.Err == nil || st.Err.Kind != ErrMissingInput {
		t.Fatalf("err = %v", st.Err)
	}
	if st.Err.Error() != "analyze: no segments" {
		t.Errorf("err text = %q", st.Err.Error())
	}
}
