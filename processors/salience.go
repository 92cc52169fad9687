package processors

import (
	"math"

	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/core"
)

// SalienceFuser combines normalized prosodic features and text importance
// into one scalar per segment via a fixed weighted sum. After
// standardization both extremes of a feature are equally notable, so every
// scalar acoustic feature except the pauses enters as an absolute
// deviation; the cepstral vector collapses to its variance across
// coefficients. When the normalizer dropped columns, the surviving
// weights are renormalized to sum to 1.0 so scores keep a stable scale
// across runs.
type SalienceFuser struct {
	weights config.SalienceWeights
	log     *logrus.Entry
}

// NewSalienceFuser builds a fuser with the configured weights. Weights
// are validated at config load to sum to 1.0.
func NewSalienceFuser(weights config.SalienceWeights) *SalienceFuser {
	return &SalienceFuser{
		weights: weights,
		log:     logrus.WithField("component", "salience"),
	}
}

// weightedFeature binds one weight to a value lookup on a row.
type weightedFeature struct {
	weight float64
	value  func(core.NormalizedFeatures, core.TextImportance) (float64, bool)
}

func absDeviation(row core.NormalizedFeatures, col string) (float64, bool) {
	v, ok := row.Scalars[col]
	return math.Abs(v), ok
}

func rawScalar(row core.NormalizedFeatures, col string) (float64, bool) {
	v, ok := row.Scalars[col]
	return v, ok
}

func (f *SalienceFuser) features() []weightedFeature {
	w := f.weights
	return []weightedFeature{
		{w.TextImportance, func(_ core.NormalizedFeatures, imp core.TextImportance) (float64, bool) {
			return imp.ImportanceScore, true
		}},
		{w.Duration, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return rawScalar(row, core.ColDuration)
		}},
		{w.MeanPitch, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return absDeviation(row, core.ColMeanPitch)
		}},
		{w.Energy, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return absDeviation(row, core.ColRMSEnergy)
		}},
		{w.SpeakingRate, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return absDeviation(row, core.ColSpeakingRate)
		}},
		{w.PauseBefore, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return rawScalar(row, core.ColPauseBefore)
		}},
		{w.PauseAfter, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return rawScalar(row, core.ColPauseAfter)
		}},
		{w.PitchStd, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return absDeviation(row, core.ColPitchStd)
		}},
		{w.Loudness, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			return absDeviation(row, core.ColLoudnessDB)
		}},
		{w.MFCCVariance, func(row core.NormalizedFeatures, _ core.TextImportance) (float64, bool) {
			if len(row.MFCC) == 0 {
				return 0, false
			}
			_, std := meanStd(row.MFCC)
			return std * std, true
		}},
	}
}

// Fuse computes the final salience score per segment and assembles the
// persisted rows. Rows, importance and segments are parallel slices in
// original order.
func (f *SalienceFuser) Fuse(segments []core.Segment, normalized []core.NormalizedFeatures, importance []core.TextImportance) []core.SalienceRow {
	features := f.features()
	out := make([]core.SalienceRow, len(segments))

	for i, seg := range segments {
		var row core.NormalizedFeatures
		var imp core.TextImportance
		if i < len(normalized) {
			row = normalized[i]
		}
		if i < len(importance) {
			imp = importance[i]
		}

		var score, activeWeight float64
		for _, feat := range features {
			v, ok := feat.value(row, imp)
			if !ok {
				continue
			}
			score += feat.weight * v
			activeWeight += feat.weight
		}
		if activeWeight > 0 {
			score /= activeWeight
		}

		out[i] = core.SalienceRow{
			SegmentID:     seg.Identity(),
			Start:         seg.Start,
			End:           seg.End,
			Text:          seg.Text,
			OriginalIndex: seg.OriginalIndex,
			Importance:    imp,
			FinalSalience: score,
		}
	}

	f.log.WithField("rows", len(out)).Debug("salience fused")
	return out
}
