package processors

import (
	"math"

	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/core"
)

// FeatureNormalizer mean-imputes and z-scores each acoustic column
// independently, using statistics from the current transcript's rows only.
// A column whose missing-rate exceeds the configured threshold is dropped
// for the run instead of imputed. The MFCC vector column is imputed and
// scaled per coefficient; coefficients are never mixed.
type FeatureNormalizer struct {
	cfg config.NormalizerConfig
	log *logrus.Entry
}

// NewFeatureNormalizer builds a normalizer with the configured drop
// threshold.
func NewFeatureNormalizer(cfg config.NormalizerConfig) *FeatureNormalizer {
	return &FeatureNormalizer{
		cfg: cfg,
		log: logrus.WithField("component", "normalizer"),
	}
}

// Normalize returns one normalized row per input row plus the list of
// columns dropped for this run.
func (n *FeatureNormalizer) Normalize(rows []core.ProsodicFeatures) ([]core.NormalizedFeatures, []string) {
	out := make([]core.NormalizedFeatures, len(rows))
	for i := range out {
		out[i].Scalars = make(map[string]float64, len(core.NormalizedColumns))
	}
	if len(rows) == 0 {
		return out, nil
	}

	var dropped []string
	for _, col := range core.NormalizedColumns {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = r.Scalar(col)
		}
		scaled, ok := n.normalizeColumn(values)
		if !ok {
			dropped = append(dropped, col)
			continue
		}
		for i, v := range scaled {
			out[i].Scalars[col] = v
		}
	}

	if mfcc, ok := n.normalizeMFCC(rows); ok {
		for i := range out {
			out[i].MFCC = mfcc[i]
		}
	} else {
		dropped = append(dropped, "mfcc")
	}

	if len(dropped) > 0 {
		n.log.WithField("columns", dropped).Info("dropped feature columns with excessive missing values")
	}
	return out, dropped
}

// normalizeColumn imputes and z-scores one scalar column. Returns false
// when the column must be dropped.
func (n *FeatureNormalizer) normalizeColumn(values []float64) ([]float64, bool) {
	observed := make([]float64, 0, len(values))
	missing := 0
	for _, v := range values {
		if core.IsMissing(v) {
			missing++
		} else {
			observed = append(observed, v)
		}
	}
	missingRate := float64(missing) / float64(len(values))
	if missingRate > n.cfg.MissingDropThreshold || len(observed) == 0 {
		return nil, false
	}

	mean, std := meanStd(observed)
	out := make([]float64, len(values))
	for i, v := range values {
		if core.IsMissing(v) {
			v = mean
		}
		if std > 0 {
			out[i] = (v - mean) / std
		} else {
			out[i] = 0
		}
	}
	return out, true
}

// normalizeMFCC imputes and scales each cepstral coefficient index across
// rows, re-packing into per-row vectors. A row counts as missing when its
// vector is absent or entirely NaN.
func (n *FeatureNormalizer) normalizeMFCC(rows []core.ProsodicFeatures) ([][]float64, bool) {
	dim := 0
	missing := 0
	for _, r := range rows {
		if vectorMissing(r.MFCC) {
			missing++
		} else if dim == 0 {
			dim = len(r.MFCC)
		}
	}
	missingRate := float64(missing) / float64(len(rows))
	if dim == 0 || missingRate > n.cfg.MissingDropThreshold {
		return nil, false
	}

	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, dim)
	}

	for j := 0; j < dim; j++ {
		observed := make([]float64, 0, len(rows))
		for _, r := range rows {
			if !vectorMissing(r.MFCC) && j < len(r.MFCC) && !core.IsMissing(r.MFCC[j]) {
				observed = append(observed, r.MFCC[j])
			}
		}
		mean, std := meanStd(observed)
		for i, r := range rows {
			v := mean
			if !vectorMissing(r.MFCC) && j < len(r.MFCC) && !core.IsMissing(r.MFCC[j]) {
				v = r.MFCC[j]
			}
			if std > 0 {
				out[i][j] = (v - mean) / std
			} else {
				out[i][j] = 0
			}
		}
	}
	return out, true
}

func vectorMissing(vec []float64) bool {
	if len(vec) == 0 {
		return true
	}
	for _, v := range vec {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
