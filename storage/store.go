package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"podcastSummarize/config"
	"podcastSummarize/core"
	"podcastSummarize/services"
)

// VectorStore persists chunks with their embeddings and salience metadata
// and answers similarity searches, isolated per transcript.
type VectorStore interface {
	Upsert(ctx context.Context, transcriptID string, chunks []core.Chunk) (int, error)
	Search(ctx context.Context, transcriptID, query string, topK int) ([]core.Hit, error)
}

// NewVectorStore selects the configured backend, falling back to the
// in-memory store when the backend cannot be reached.
func NewVectorStore(ctx context.Context, cfg *config.Config, embedder services.Embedder) VectorStore {
	log := logrus.WithField("component", "vectorstore")
	switch strings.ToLower(cfg.Storage.Backend) {
	case "pgvector":
		s, err := NewPgVectorStore(ctx, cfg.Storage, embedder)
		if err != nil {
			log.WithError(err).Warn("pgvector unavailable, falling back to memory store")
			return NewMemoryVectorStore(embedder)
		}
		log.Info("using pgvector store")
		return s
	case "milvus":
		s, err := NewMilvusVectorStore(ctx, cfg.Storage, embedder)
		if err != nil {
			log.WithError(err).Warn("milvus unavailable, falling back to memory store")
			return NewMemoryVectorStore(embedder)
		}
		log.Info("using milvus store")
		return s
	default:
		log.Info("using in-memory store")
		return NewMemoryVectorStore(embedder)
	}
}

// ---------------- Memory implementation (fallback) ----------------

// MemoryVectorStore keeps chunk vectors in process memory. Searches use
// the same embedder the pipeline used for indexing.
type MemoryVectorStore struct {
	mu       sync.RWMutex
	embedder services.Embedder
	docs     map[string][]core.Chunk // transcriptID -> chunks
}

func NewMemoryVectorStore(embedder services.Embedder) *MemoryVectorStore {
	return &MemoryVectorStore{
		embedder: embedder,
		docs:     make(map[string][]core.Chunk),
	}
}

func (s *MemoryVectorStore) Upsert(_ context.Context, transcriptID string, chunks []core.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]core.Chunk, len(chunks))
	copy(stored, chunks)
	s.docs[transcriptID] = stored
	return len(stored), nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, transcriptID, query string, topK int) ([]core.Hit, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	docs := s.docs[transcriptID]
	s.mu.RUnlock()

	type scored struct {
		i     int
		score float64
	}
	scores := make([]scored, 0, len(docs))
	for i, d := range docs {
		scores = append(scores, scored{i, services.CosineSimilarity32(qv, d.Embedding)})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK <= 0 {
		topK = 5
	}
	if topK > len(scores) {
		topK = len(scores)
	}

	hits := make([]core.Hit, 0, topK)
	for _, sc := range scores[:topK] {
		d := docs[sc.i]
		hits = append(hits, core.Hit{
			Score:         sc.score,
			Text:          d.Text,
			OriginalIndex: d.OriginalIndex,
			Salience:      d.Salience,
		})
	}
	return hits, nil
}

// ---------------- PgVector implementation ----------------

// PgVectorStore persists chunk vectors in Postgres with the pgvector
// extension.
type PgVectorStore struct {
	conn     *pgx.Conn
	embedder services.Embedder
	dim      int
}

func NewPgVectorStore(ctx context.Context, cfg config.StorageConfig, embedder services.Embedder) (*PgVectorStore, error) {
	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("postgres_url not configured")
	}
	conn, err := pgx.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PgVectorStore{conn: conn, embedder: embedder, dim: cfg.EmbeddingDim}
	if err := s.ensureTable(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) ensureTable(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS podcast_chunks (
			id SERIAL PRIMARY KEY,
			transcript_id VARCHAR(255) NOT NULL,
			chunk_id VARCHAR(64) NOT NULL,
			original_index INT NOT NULL,
			text TEXT NOT NULL,
			word_count INT NOT NULL,
			salience FLOAT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(transcript_id, chunk_id)
		);
	`, s.dim)
	if _, err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create podcast_chunks table: %w", err)
	}
	idx := "CREATE INDEX IF NOT EXISTS idx_podcast_chunks_transcript ON podcast_chunks(transcript_id);"
	if _, err := s.conn.Exec(ctx, idx); err != nil {
		return fmt.Errorf("create chunk index: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, transcriptID string, chunks []core.Chunk) (int, error) {
	count := 0
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			continue
		}
		_, err := s.conn.Exec(ctx, `
			INSERT INTO podcast_chunks
				(transcript_id, chunk_id, original_index, text, word_count, salience, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (transcript_id, chunk_id) DO UPDATE SET
				salience = EXCLUDED.salience,
				embedding = EXCLUDED.embedding`,
			transcriptID, ch.ID, ch.OriginalIndex, ch.Text, ch.WordCount, ch.Salience,
			pgvector.NewVector(ch.Embedding))
		if err != nil {
			return count, fmt.Errorf("insert chunk: %w", err)
		}
		count++
	}
	return count, nil
}

func (s *PgVectorStore) Search(ctx context.Context, transcriptID, query string, topK int) ([]core.Hit, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.conn.Query(ctx, `
		SELECT text, original_index, salience, 1 - (embedding <=> $1) AS score
		FROM podcast_chunks
		WHERE transcript_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(qv), transcriptID, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []core.Hit
	for rows.Next() {
		var h core.Hit
		if err := rows.Scan(&h.Text, &h.OriginalIndex, &h.Salience, &h.Score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Close releases the database connection.
func (s *PgVectorStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// ---------------- Milvus implementation ----------------

// MilvusVectorStore persists chunk vectors in a Milvus collection with an
// HNSW cosine index.
type MilvusVectorStore struct {
	mc       client.Client
	embedder services.Embedder
	coll     string
	dim      int
}

func NewMilvusVectorStore(ctx context.Context, cfg config.StorageConfig, embedder services.Embedder) (*MilvusVectorStore, error) {
	mc, err := client.NewClient(ctx, client.Config{Address: cfg.MilvusAddr})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	s := &MilvusVectorStore{mc: mc, embedder: embedder, coll: cfg.MilvusCollection, dim: cfg.EmbeddingDim}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusVectorStore) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return err
	}
	if !has {
		schema := entity.NewSchema()
		schema.WithField(entity.NewField().WithName("id").WithIsAutoID(true).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("transcript_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(255))
		schema.WithField(entity.NewField().WithName("original_index").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("salience").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))
		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

// transcriptFilter builds the boolean expression isolating one
// transcript's rows, with quotes escaped.
func transcriptFilter(transcriptID string) string {
	return fmt.Sprintf(`transcript_id == "%s"`, strings.ReplaceAll(transcriptID, `"`, `\"`))
}

func (s *MilvusVectorStore) Upsert(ctx context.Context, transcriptID string, chunks []core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	// Replace, not append: reprocessing a transcript must not leave
	// stale duplicate rows behind.
	if err := s.mc.Delete(ctx, s.coll, "", transcriptFilter(transcriptID)); err != nil {
		return 0, fmt.Errorf("clear existing chunks: %w", err)
	}
	ids := make([]string, 0, len(chunks))
	indexes := make([]int64, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	saliences := make([]float64, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			continue
		}
		ids = append(ids, transcriptID)
		indexes = append(indexes, int64(ch.OriginalIndex))
		texts = append(texts, ch.Text)
		saliences = append(saliences, ch.Salience)
		vectors = append(vectors, ch.Embedding)
	}
	if len(vectors) == 0 {
		return 0, nil
	}
	_, err := s.mc.Insert(ctx, s.coll, "",
		entity.NewColumnVarChar("transcript_id", ids),
		entity.NewColumnInt64("original_index", indexes),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnDouble("salience", saliences),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		return 0, fmt.Errorf("milvus insert: %w", err)
	}
	return len(vectors), nil
}

func (s *MilvusVectorStore) Search(ctx context.Context, transcriptID, query string, topK int) ([]core.Hit, error) {
	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if topK <= 0 {
		topK = 5
	}
	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := s.mc.Search(ctx, s.coll, []string{}, transcriptFilter(transcriptID),
		[]string{"text", "original_index", "salience"},
		[]entity.Vector{entity.FloatVector(qv)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	var hits []core.Hit
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			var h core.Hit
			if c, ok := cols["text"].(*entity.ColumnVarChar); ok {
				if data := c.Data(); i < len(data) {
					h.Text = data[i]
				}
			}
			if c, ok := cols["original_index"].(*entity.ColumnInt64); ok {
				if data := c.Data(); i < len(data) {
					h.OriginalIndex = int(data[i])
				}
			}
			if c, ok := cols["salience"].(*entity.ColumnDouble); ok {
				if data := c.Data(); i < len(data) {
					h.Salience = data[i]
				}
			}
			h.Score = float64(r.Scores[i])
			hits = append(hits, h)
		}
	}
	return hits, nil
}
