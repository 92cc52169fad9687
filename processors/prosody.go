package processors

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/core"
)

// ProsodyExtractor computes per-segment acoustic features from a shared
// read-only waveform. Per-segment extraction runs on a bounded worker
// pool; the pause pass that follows is strictly sequential because each
// pause depends on the adjacent segment.
type ProsodyExtractor struct {
	cfg config.ProsodyConfig
	log *logrus.Entry
}

// NewProsodyExtractor builds an extractor with the configured pitch range
// and worker bound.
func NewProsodyExtractor(cfg config.ProsodyConfig) *ProsodyExtractor {
	return &ProsodyExtractor{
		cfg: cfg,
		log: logrus.WithField("component", "prosody"),
	}
}

// Extract returns one feature row per segment, in segment order. Segments
// whose audio span is empty produce rows with acoustic fields marked
// missing; duration and word count are always filled in.
func (e *ProsodyExtractor) Extract(ctx context.Context, wave *core.Waveform, segments []core.Segment) []core.ProsodicFeatures {
	rows := make([]core.ProsodicFeatures, len(segments))

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	dispatched := len(segments)
	for i := range segments {
		if ctx.Err() != nil {
			// Caller timed out; finish what was dispatched and stop.
			dispatched = i
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			rows[idx] = e.extractOne(wave, segments[idx])
		}(i)
	}
	wg.Wait()

	// Rows never dispatched carry missing acoustics, not fabricated
	// zeros, in case the caller keeps the partial result.
	for i := dispatched; i < len(segments); i++ {
		rows[i] = skeletonRow(segments[i])
		markAcousticsMissing(&rows[i])
	}

	// Sequential pass: pauses depend on neighbors and original order.
	fillPauses(segments, rows)

	e.log.WithField("segments", len(segments)).Debug("prosodic features extracted")
	return rows
}

// skeletonRow carries only the text-derived fields; pauses are filled by
// the sequential pass.
func skeletonRow(seg core.Segment) core.ProsodicFeatures {
	return core.ProsodicFeatures{
		Duration:    seg.Duration(),
		WordCount:   len(strings.Fields(seg.Text)),
		PauseBefore: core.Missing,
		PauseAfter:  core.Missing,
	}
}

// markAcousticsMissing marks every audio-derived field missing.
func markAcousticsMissing(row *core.ProsodicFeatures) {
	row.MeanPitch = core.Missing
	row.PitchStd = core.Missing
	row.RMSEnergy = core.Missing
	row.LoudnessDB = core.Missing
	row.SpeakingRate = core.Missing
	row.MFCC = missingVector(core.MFCCCoefficients)
}

// extractOne computes all order-independent features for one segment.
func (e *ProsodyExtractor) extractOne(wave *core.Waveform, seg core.Segment) core.ProsodicFeatures {
	row := skeletonRow(seg)

	slice := wave.Slice(seg.Start, seg.End)
	if len(slice) == 0 {
		markAcousticsMissing(&row)
		return row
	}

	rms := rmsEnergy(slice)
	row.RMSEnergy = rms

	peak := peakAmplitude(slice)
	row.LoudnessDB = 20 * math.Log10((rms+1e-10)/(peak+1e-10))

	voiced := pitchTrack(slice, wave.SampleRate, e.cfg.PitchMinHz, e.cfg.PitchMaxHz)
	if len(voiced) > 0 {
		row.MeanPitch, row.PitchStd = meanStd(voiced)
	} else {
		// Unvoiced segment: zero, not missing.
		row.MeanPitch = 0
		row.PitchStd = 0
	}

	if row.Duration > 0 {
		row.SpeakingRate = float64(row.WordCount) / row.Duration
	} else {
		row.SpeakingRate = 0
	}

	if mfcc := mfccMean(slice, wave.SampleRate, core.MFCCCoefficients); mfcc != nil {
		row.MFCC = mfcc
	} else {
		row.MFCC = missingVector(core.MFCCCoefficients)
	}
	return row
}

// fillPauses fills pause_before/pause_after from the gaps between
// neighboring segments, floored at zero. The first segment has no
// pause_before, the last no pause_after.
func fillPauses(segments []core.Segment, rows []core.ProsodicFeatures) {
	for i := range segments {
		if i > 0 {
			rows[i].PauseBefore = math.Max(0, segments[i].Start-segments[i-1].End)
		}
		if i < len(segments)-1 {
			rows[i].PauseAfter = math.Max(0, segments[i+1].Start-segments[i].End)
		}
	}
}

func missingVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = core.Missing
	}
	return v
}
