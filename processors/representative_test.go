package processors

import (
	"context"
	"testing"

	"podcastSummarize/config"
	"podcastSummarize/core"
)

// axisEmbedder returns the same document vector for any text; chunk
// similarity is then controlled entirely by the chunk embeddings.
func axisEmbedder(doc []float32) stubEmbedder {
	return stubEmbedder{vec: func(string) []float32 { return doc }}
}

func selectorConfig(minReps, budget, perChunk int) *config.Config {
	cfg := config.Default()
	cfg.Selector.WordRatio = 10
	cfg.Selector.MinRepresentatives = minReps
	cfg.Selector.ContextTokenBudget = budget
	cfg.Selector.TokensPerChunk = perChunk
	return cfg
}

// chunkWithSim builds a chunk whose cosine similarity to the document
// vector {1,0} is exactly sim.
func chunkWithSim(idx int, sim float32) core.Chunk {
	other := float32(1)
	return core.Chunk{
		ID:            string(rune('a' + idx)),
		Text:          "chunk",
		OriginalIndex: idx,
		Embedding:     []float32{sim, other},
	}
}

func TestSelectClampsToBudgetAndRestoresOrder(t *testing.T) {
	// Budget ceiling: 30/10 = 3 representatives.
	cfg := selectorConfig(2, 30, 10)
	sel := NewAdaptiveSelector(cfg, axisEmbedder([]float32{1, 0}))

	chunks := []core.Chunk{
		chunkWithSim(0, 0.9),
		chunkWithSim(1, 0.1),
		chunkWithSim(2, 0.8),
		chunkWithSim(3, 0.2),
		chunkWithSim(4, 0.7),
	}
	reps, scored, err := sel.Select(context.Background(), "the transcript", chunks, 1000)
	if err != nil {
		t.Fatal(err)
	}

	if len(reps.Chunks) != 3 {
		t.Fatalf("selected %d representatives, want 3", len(reps.Chunks))
	}
	// Top-3 by similarity are indices 0, 2, 4, and they must come back in
	// document order.
	wantIdx := []int{0, 2, 4}
	for i, ch := range reps.Chunks {
		if ch.OriginalIndex != wantIdx[i] {
			t.Errorf("representative %d has original index %d, want %d", i, ch.OriginalIndex, wantIdx[i])
		}
	}

	if len(scored) != len(chunks) {
		t.Fatalf("scored %d chunks, want %d", len(scored), len(chunks))
	}
	for i, ch := range scored {
		if ch.OriginalIndex != i {
			t.Errorf("scored chunk %d out of document order: index %d", i, ch.OriginalIndex)
		}
		if ch.Salience == 0 {
			t.Errorf("scored chunk %d has zero salience", i)
		}
	}
}

func TestSelectShortTranscriptUsesMinimum(t *testing.T) {
	cfg := selectorConfig(3, 1000, 10)
	sel := NewAdaptiveSelector(cfg, axisEmbedder([]float32{1, 0}))

	chunks := []core.Chunk{
		chunkWithSim(0, 0.9),
		chunkWithSim(1, 0.1),
		chunkWithSim(2, 0.8),
		chunkWithSim(3, 0.2),
	}
	// 10 words / ratio 10 = 1, clamped up to the minimum of 3.
	reps, _, err := sel.Select(context.Background(), "short", chunks, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(reps.Chunks) != 3 {
		t.Errorf("selected %d representatives, want minimum 3", len(reps.Chunks))
	}
}

func TestSelectBelowMinimumKeepsAllChunks(t *testing.T) {
	cfg := selectorConfig(3, 1000, 10)
	sel := NewAdaptiveSelector(cfg, axisEmbedder([]float32{1, 0}))

	chunks := []core.Chunk{
		chunkWithSim(0, 0.5),
		chunkWithSim(1, 0.4),
	}
	reps, scored, err := sel.Select(context.Background(), "tiny", chunks, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(reps.Chunks) != 2 {
		t.Fatalf("selected %d representatives, want all 2", len(reps.Chunks))
	}
	for i := range scored {
		if scored[i].Salience == 0 {
			t.Errorf("chunk %d not scored on the below-minimum path", i)
		}
	}
}

func TestSelectEmptyInput(t *testing.T) {
	sel := NewAdaptiveSelector(selectorConfig(3, 1000, 10), axisEmbedder([]float32{1, 0}))
	reps, scored, err := sel.Select(context.Background(), "anything", nil, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(reps.Chunks) != 0 || scored != nil {
		t.Errorf("empty input produced %d representatives", len(reps.Chunks))
	}
}
