package processors

import (
	"math"
	"testing"

	"podcastSummarize/config"
	"podcastSummarize/core"
)

func fullScalarRow() core.NormalizedFeatures {
	return core.NormalizedFeatures{
		Scalars: map[string]float64{
			core.ColDuration:     0,
			core.ColMeanPitch:    0,
			core.ColPitchStd:     0,
			core.ColRMSEnergy:    0,
			core.ColLoudnessDB:   0,
			core.ColSpeakingRate: 0,
			core.ColPauseBefore:  0,
			core.ColPauseAfter:   0,
		},
		MFCC: []float64{0, 0, 0},
	}
}

func TestFuseAverageSegmentScoresHalfImportance(t *testing.T) {
	// A perfectly average segment: every normalized feature at its mean and
	// text importance of 1.0 leaves exactly the text weight.
	fuser := NewSalienceFuser(config.Default().Salience)
	segments := []core.Segment{{Start: 0, End: 1, Text: "hello", OriginalIndex: 0}}
	rows := fuser.Fuse(segments,
		[]core.NormalizedFeatures{fullScalarRow()},
		[]core.TextImportance{{ImportanceScore: 1.0}})

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if math.Abs(rows[0].FinalSalience-0.5) > 1e-9 {
		t.Errorf("salience = %v, want 0.5", rows[0].FinalSalience)
	}
}

func TestFuseRenormalizesOverDroppedColumns(t *testing.T) {
	fuser := NewSalienceFuser(config.Default().Salience)
	row := fullScalarRow()
	delete(row.Scalars, core.ColMeanPitch)
	row.MFCC = nil

	segments := []core.Segment{{Start: 0, End: 1, Text: "hello"}}
	rows := fuser.Fuse(segments,
		[]core.NormalizedFeatures{row},
		[]core.TextImportance{{ImportanceScore: 1.0}})

	// Active weight is 1.0 - 0.10 (pitch) - 0.05 (cepstral variance).
	want := 0.5 / 0.85
	if math.Abs(rows[0].FinalSalience-want) > 1e-9 {
		t.Errorf("salience = %v, want %v", rows[0].FinalSalience, want)
	}
}

func TestFuseUsesAbsoluteDeviations(t *testing.T) {
	fuser := NewSalienceFuser(config.Default().Salience)
	low := fullScalarRow()
	low.Scalars[core.ColMeanPitch] = -2.0
	high := fullScalarRow()
	high.Scalars[core.ColMeanPitch] = 2.0

	segments := []core.Segment{
		{Start: 0, End: 1, Text: "low"},
		{Start: 1, End: 2, Text: "high"},
	}
	rows := fuser.Fuse(segments,
		[]core.NormalizedFeatures{low, high},
		[]core.TextImportance{{}, {}})

	if math.Abs(rows[0].FinalSalience-rows[1].FinalSalience) > 1e-9 {
		t.Errorf("deviations below and above the mean scored differently: %v vs %v",
			rows[0].FinalSalience, rows[1].FinalSalience)
	}
	if rows[0].FinalSalience <= 0 {
		t.Errorf("deviant segment scored %v, want positive", rows[0].FinalSalience)
	}
}

func TestFusePreservesSegmentIdentity(t *testing.T) {
	fuser := NewSalienceFuser(config.Default().Salience)
	segments := []core.Segment{
		{Start: 0, End: 1, Text: "first", OriginalIndex: 0},
		{Start: 1, End: 2, Text: "second", OriginalIndex: 1},
	}
	rows := fuser.Fuse(segments,
		[]core.NormalizedFeatures{fullScalarRow(), fullScalarRow()},
		[]core.TextImportance{{}, {}})

	for i, r := range rows {
		if r.OriginalIndex != i {
			t.Errorf("row %d has original index %d", i, r.OriginalIndex)
		}
		if r.SegmentID != segments[i].Identity() {
			t.Errorf("row %d segment id mismatch", i)
		}
		if r.Text != segments[i].Text {
			t.Errorf("row %d text = %q", i, r.Text)
		}
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	if sum := config.Default().Salience.Sum(); math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("default weights sum to %v", sum)
	}
}
