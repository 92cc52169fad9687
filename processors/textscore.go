package processors

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"podcastSummarize/core"
	"podcastSummarize/services"
)

// englishStopwords are removed before the lexical pass. The embedding
// pass sees the raw text.
var englishStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be because
		been before being below between both but by can did do does doing down during each few for from further
		had has have having he her here hers herself him himself his how i if in into is it its itself just me
		more most my myself no nor not now of off on once only or other our ours ourselves out over own s same
		she should so some such t than that the their theirs them themselves then there these they this those
		through to too under until up very was we were what when where which while who whom why will with you
		your yours yourself yourselves`) {
		englishStopwords[w] = struct{}{}
	}
}

var punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// cleanForLexical strips punctuation, lowercases and removes stopwords.
func cleanForLexical(text string) []string {
	stripped := punctuationPattern.ReplaceAllString(strings.ToLower(text), "")
	words := strings.Fields(stripped)
	kept := words[:0]
	for _, w := range words {
		if _, stop := englishStopwords[w]; !stop {
			kept = append(kept, w)
		}
	}
	return kept
}

// TextImportanceScorer computes per-unit lexical and semantic importance
// relative to the whole transcript. The embedding similarity is the
// authoritative score; TF-IDF similarity is a diagnostic only, since
// lexical overlap generalizes poorly to paraphrase-heavy speech.
type TextImportanceScorer struct {
	embedder services.Embedder
	log      *logrus.Entry
}

// NewTextImportanceScorer builds a scorer around the injected embedder.
func NewTextImportanceScorer(embedder services.Embedder) *TextImportanceScorer {
	return &TextImportanceScorer{
		embedder: embedder,
		log:      logrus.WithField("component", "textscore"),
	}
}

// Score returns one importance row per unit text, in input order. The
// transcript embedding is computed once over the full concatenated text.
func (s *TextImportanceScorer) Score(ctx context.Context, transcript string, units []string) ([]core.TextImportance, error) {
	if len(units) == 0 {
		return nil, nil
	}

	rows := make([]core.TextImportance, len(units))

	// Lexical diagnostic: cosine of each unit's TF-IDF vector against the
	// mean document vector.
	tfidfSims := tfidfDocumentSimilarity(units)
	for i, sim := range tfidfSims {
		rows[i].TFIDFSimilarity = sim
	}

	unitVecs, err := s.embedder.EmbedBatch(ctx, units)
	if err != nil {
		return nil, fmt.Errorf("embed units: %w", err)
	}
	docVec, err := s.embedder.Embed(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("embed transcript: %w", err)
	}

	for i, vec := range unitVecs {
		sim := services.CosineSimilarity32(vec, docVec)
		rows[i].EmbeddingSimilarity = sim
		rows[i].ImportanceScore = sim
	}

	s.log.WithField("units", len(units)).Debug("text importance scored")
	return rows, nil
}

// tfidfDocumentSimilarity builds smoothed TF-IDF vectors over the cleaned
// unit texts and returns each unit's cosine similarity to the mean
// document vector.
func tfidfDocumentSimilarity(units []string) []float64 {
	n := len(units)
	termCounts := make([]map[string]float64, n)
	docFreq := make(map[string]float64)

	for i, u := range units {
		counts := make(map[string]float64)
		for _, w := range cleanForLexical(u) {
			counts[w]++
		}
		termCounts[i] = counts
		for w := range counts {
			docFreq[w]++
		}
	}

	// Smoothed idf, then l2-normalized tf-idf rows.
	idf := make(map[string]float64, len(docFreq))
	for w, df := range docFreq {
		idf[w] = math.Log((1+float64(n))/(1+df)) + 1
	}

	vectors := make([]map[string]float64, n)
	for i, counts := range termCounts {
		vec := make(map[string]float64, len(counts))
		var norm float64
		for w, tf := range counts {
			v := tf * idf[w]
			vec[w] = v
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for w := range vec {
				vec[w] /= norm
			}
		}
		vectors[i] = vec
	}

	// Mean document vector.
	doc := make(map[string]float64)
	for _, vec := range vectors {
		for w, v := range vec {
			doc[w] += v / float64(n)
		}
	}
	var docNorm float64
	for _, v := range doc {
		docNorm += v * v
	}
	docNorm = math.Sqrt(docNorm)

	sims := make([]float64, n)
	if docNorm == 0 {
		return sims
	}
	for i, vec := range vectors {
		var dot float64
		for w, v := range vec {
			dot += v * doc[w]
		}
		// Rows are unit-norm already (or empty).
		sims[i] = dot / docNorm
	}
	return sims
}
