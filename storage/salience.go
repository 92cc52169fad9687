// Package storage persists the per-transcript salience table and the
// chunk vector index. Both have in-memory fallbacks so the pipeline keeps
// working without external services.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"podcastSummarize/core"
)

// SalienceStore persists the per-transcript salience table, keyed by
// segment identity, for later joins by indexing and re-ranking stages.
type SalienceStore interface {
	Save(ctx context.Context, transcriptID string, rows []core.SalienceRow) error
	Load(ctx context.Context, transcriptID string) ([]core.SalienceRow, error)
}

// MemorySalienceStore keeps salience tables in process memory.
type MemorySalienceStore struct {
	mu     sync.RWMutex
	tables map[string][]core.SalienceRow
}

// NewMemorySalienceStore returns an empty in-memory store.
func NewMemorySalienceStore() *MemorySalienceStore {
	return &MemorySalienceStore{tables: make(map[string][]core.SalienceRow)}
}

func (s *MemorySalienceStore) Save(_ context.Context, transcriptID string, rows []core.SalienceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]core.SalienceRow, len(rows))
	copy(stored, rows)
	s.tables[transcriptID] = stored
	return nil
}

func (s *MemorySalienceStore) Load(_ context.Context, transcriptID string) ([]core.SalienceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.tables[transcriptID]
	if !ok {
		return nil, fmt.Errorf("no salience table for transcript %s", transcriptID)
	}
	out := make([]core.SalienceRow, len(rows))
	copy(out, rows)
	return out, nil
}

// PostgresSalienceStore persists salience tables in Postgres.
type PostgresSalienceStore struct {
	conn *pgx.Conn
}

// NewPostgresSalienceStore connects and ensures the schema exists.
func NewPostgresSalienceStore(ctx context.Context, dbURL string) (*PostgresSalienceStore, error) {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresSalienceStore{conn: conn}
	if err := s.ensureTable(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *PostgresSalienceStore) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS salience_rows (
			id SERIAL PRIMARY KEY,
			transcript_id VARCHAR(255) NOT NULL,
			segment_id VARCHAR(64) NOT NULL,
			start_time FLOAT NOT NULL,
			end_time FLOAT NOT NULL,
			text TEXT NOT NULL,
			original_index INT NOT NULL,
			tfidf_similarity FLOAT,
			embedding_similarity FLOAT,
			text_importance FLOAT,
			final_salience FLOAT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(transcript_id, segment_id)
		);
	`
	if _, err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create salience_rows table: %w", err)
	}
	idx := "CREATE INDEX IF NOT EXISTS idx_salience_transcript ON salience_rows(transcript_id);"
	if _, err := s.conn.Exec(ctx, idx); err != nil {
		return fmt.Errorf("create salience index: %w", err)
	}
	return nil
}

func (s *PostgresSalienceStore) Save(ctx context.Context, transcriptID string, rows []core.SalienceRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO salience_rows
				(transcript_id, segment_id, start_time, end_time, text, original_index,
				 tfidf_similarity, embedding_similarity, text_importance, final_salience)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (transcript_id, segment_id) DO UPDATE SET
				final_salience = EXCLUDED.final_salience,
				tfidf_similarity = EXCLUDED.tfidf_similarity,
				embedding_similarity = EXCLUDED.embedding_similarity,
				text_importance = EXCLUDED.text_importance`,
			transcriptID, r.SegmentID, r.Start, r.End, r.Text, r.OriginalIndex,
			r.Importance.TFIDFSimilarity, r.Importance.EmbeddingSimilarity,
			r.Importance.ImportanceScore, r.FinalSalience)
	}
	br := s.conn.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert salience row: %w", err)
		}
	}
	return nil
}

func (s *PostgresSalienceStore) Load(ctx context.Context, transcriptID string) ([]core.SalienceRow, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT segment_id, start_time, end_time, text, original_index,
		       tfidf_similarity, embedding_similarity, text_importance, final_salience
		FROM salience_rows
		WHERE transcript_id = $1
		ORDER BY original_index`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query salience rows: %w", err)
	}
	defer rows.Close()

	var out []core.SalienceRow
	for rows.Next() {
		var r core.SalienceRow
		if err := rows.Scan(&r.SegmentID, &r.Start, &r.End, &r.Text, &r.OriginalIndex,
			&r.Importance.TFIDFSimilarity, &r.Importance.EmbeddingSimilarity,
			&r.Importance.ImportanceScore, &r.FinalSalience); err != nil {
			return nil, fmt.Errorf("scan salience row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (s *PostgresSalienceStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
