package storage

import (
	"context"
	"testing"

	"podcastSummarize/config"
	"podcastSummarize/core"
	"podcastSummarize/services"
)

func chunkFor(emb services.Embedder, idx int, text string) core.Chunk {
	vec, _ := emb.Embed(context.Background(), text)
	return core.Chunk{
		ID:            text,
		Text:          text,
		Embedding:     vec,
		OriginalIndex: idx,
		WordCount:     len(text),
		Salience:      0.5,
	}
}

func TestMemoryVectorStoreSearch(t *testing.T) {
	emb := services.NewMockEmbedder(32)
	store := NewMemoryVectorStore(emb)
	ctx := context.Background()

	chunks := []core.Chunk{
		chunkFor(emb, 0, "the history of jazz music"),
		chunkFor(emb, 1, "cooking pasta at home"),
		chunkFor(emb, 2, "modern jazz improvisation"),
	}
	n, err := store.Upsert(ctx, "ep1", chunks)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("upserted %d, want 3", n)
	}

	// An exact text match embeds to the identical vector and must rank
	// first.
	hits, err := store.Search(ctx, "ep1", "cooking pasta at home", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Text != "cooking pasta at home" {
		t.Errorf("top hit = %q", hits[0].Text)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not sorted by score")
	}
	if hits[0].Salience != 0.5 || hits[0].OriginalIndex != 1 {
		t.Errorf("hit metadata = %+v", hits[0])
	}
}

func TestMemoryVectorStoreIsolatesTranscripts(t *testing.T) {
	emb := services.NewMockEmbedder(32)
	store := NewMemoryVectorStore(emb)
	ctx := context.Background()

	if _, err := store.Upsert(ctx, "ep1", []core.Chunk{chunkFor(emb, 0, "alpha")}); err != nil {
		t.Fatal(err)
	}
	hits, err := store.Search(ctx, "ep2", "alpha", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits from a different transcript", len(hits))
	}
}

func TestMemoryVectorStoreUpsertReplaces(t *testing.T) {
	emb := services.NewMockEmbedder(32)
	store := NewMemoryVectorStore(emb)
	ctx := context.Background()

	store.Upsert(ctx, "ep1", []core.Chunk{chunkFor(emb, 0, "old"), chunkFor(emb, 1, "older")})
	store.Upsert(ctx, "ep1", []core.Chunk{chunkFor(emb, 0, "new")})

	hits, err := store.Search(ctx, "ep1", "anything", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Text != "new" {
		t.Errorf("hits after replace = %+v", hits)
	}
}

func TestNewVectorStoreFallsBackToMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "pgvector"
	cfg.Storage.PostgresURL = "" // unreachable by construction

	store := NewVectorStore(context.Background(), cfg, services.NewMockEmbedder(8))
	if _, ok := store.(*MemoryVectorStore); !ok {
		t.Errorf("store = %T, want memory fallback", store)
	}
}

func TestTranscriptFilter(t *testing.T) {
	if got := transcriptFilter("ep1"); got != `transcript_id == "ep1"` {
		t.Errorf("filter = %s", got)
	}
	// Quotes in the id must not break out of the expression.
	if got := transcriptFilter(`ep"1`); got != `transcript_id == "ep\"1"` {
		t.Errorf("escaped filter = %s", got)
	}
}

func TestMemorySalienceStoreRoundTrip(t *testing.T) {
	store := NewMemorySalienceStore()
	ctx := context.Background()

	rows := []core.SalienceRow{
		{SegmentID: "a", Start: 0, End: 1, Text: "first", OriginalIndex: 0, FinalSalience: 0.4},
		{SegmentID: "b", Start: 1, End: 2, Text: "second", OriginalIndex: 1, FinalSalience: 0.6},
	}
	if err := store.Save(ctx, "ep1", rows); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "ep1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
	// The stored copy is defensive: mutating the original must not leak.
	rows[0].Text = "mutated"
	got2, _ := store.Load(ctx, "ep1")
	if got2[0].Text != "first" {
		t.Error("store shares memory with the caller's slice")
	}

	if _, err := store.Load(ctx, "missing"); err == nil {
		t.Error("load of unknown transcript succeeded")
	}
}
