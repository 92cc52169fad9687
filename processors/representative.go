package processors

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/core"
	"podcastSummarize/services"
)

// AdaptiveSelector picks a length-budgeted subset of chunks ranked by
// salience against the whole transcript, then restores document order.
// The target count grows with transcript length (one representative per
// WordRatio words) and is clamped between MinRepresentatives and a
// ceiling derived from the completion-service context budget.
type AdaptiveSelector struct {
	cfg      config.SelectorConfig
	maxReps  int
	embedder services.Embedder
	log      *logrus.Entry
}

// NewAdaptiveSelector builds a selector; cfg carries the word ratio and
// token budget the ceiling is derived from.
func NewAdaptiveSelector(cfg *config.Config, embedder services.Embedder) *AdaptiveSelector {
	return &AdaptiveSelector{
		cfg:      cfg.Selector,
		maxReps:  cfg.MaxRepresentatives(),
		embedder: embedder,
		log:      logrus.WithField("component", "selector"),
	}
}

// Select scores every chunk against the transcript embedding and returns
// the representative set in document order, plus all chunks with their
// salience filled in (document order) for downstream indexing. When fewer
// chunks exist than MinRepresentatives, every chunk is representative and
// selection is skipped.
func (s *AdaptiveSelector) Select(ctx context.Context, transcript string, chunks []core.Chunk, transcriptWords int) (core.RepresentativeSet, []core.Chunk, error) {
	if len(chunks) == 0 {
		return core.RepresentativeSet{}, nil, nil
	}

	docVec, err := s.embedder.Embed(ctx, transcript)
	if err != nil {
		return core.RepresentativeSet{}, nil, fmt.Errorf("embed transcript: %w", err)
	}
	scored := make([]core.Chunk, len(chunks))
	copy(scored, chunks)
	for i := range scored {
		scored[i].Salience = services.CosineSimilarity32(scored[i].Embedding, docVec)
	}
	sortByOriginalIndex(scored)

	if len(scored) < s.cfg.MinRepresentatives {
		return core.RepresentativeSet{Chunks: scored}, scored, nil
	}

	n := s.targetCount(transcriptWords, len(scored))

	ranked := make([]core.Chunk, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Salience > ranked[j].Salience
	})
	selected := ranked[:n]
	sortByOriginalIndex(selected)

	s.log.WithFields(logrus.Fields{"chunks": len(chunks), "selected": n}).
		Debug("representatives selected")
	return core.RepresentativeSet{Chunks: selected}, scored, nil
}

// targetCount clamps transcriptWords/WordRatio to the configured bounds
// and the number of available chunks.
func (s *AdaptiveSelector) targetCount(transcriptWords, available int) int {
	n := transcriptWords / s.cfg.WordRatio
	if n < s.cfg.MinRepresentatives {
		n = s.cfg.MinRepresentatives
	}
	if n > s.maxReps {
		n = s.maxReps
	}
	if n > available {
		n = available
	}
	return n
}

func sortByOriginalIndex(chunks []core.Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].OriginalIndex < chunks[j].OriginalIndex
	})
}
