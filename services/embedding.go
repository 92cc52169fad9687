// Package services defines the external collaborators the pipeline
// consumes: embeddings, transcription, completion and media acquisition.
// Each has an OpenAI-compatible implementation and a deterministic mock
// used when no API is configured.
package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"podcastSummarize/config"
)

// Embedder produces dense vectors for text. Implementations must be
// deterministic for identical input and return consistent dimensionality
// across calls within a run.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	cli   *openai.Client
	model string
}

// NewOpenAIEmbedder builds an embedder from the configured endpoint.
func NewOpenAIEmbedder(cfg *config.Config) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		cli:   newOpenAIClient(cfg),
		model: cfg.OpenAI.EmbeddingModel,
	}
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding API returned out-of-range index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// MockEmbedder derives a unit vector from a hash of the input text. Equal
// texts map to equal vectors; unrelated texts are near orthogonal in
// expectation, which is enough structure for offline operation and tests.
type MockEmbedder struct {
	Dim int
}

// NewMockEmbedder returns a mock embedder with the given dimensionality.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &MockEmbedder{Dim: dim}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return m.vector(text), nil
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = m.vector(t)
	}
	return vecs, nil
}

func (m *MockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.Dim)
	seed := sha256.Sum256([]byte(text))
	// Expand the digest into the vector by rehashing with a counter.
	var norm float64
	for i := 0; i < m.Dim; i++ {
		block := sha256.Sum256(append(seed[:], byte(i), byte(i>>8)))
		v := float32(int16(uint16(block[0])|uint16(block[1])<<8)) / 32768.0
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// CosineSimilarity32 computes cosine similarity between two float32
// vectors, returning 0 for mismatched or zero-norm inputs.
func CosineSimilarity32(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
