package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // Postgres driver
	"github.com/pgvector/pgvector-go"
)

// EmbeddingDim matches the output dimension of the text-embedding-004 model.
const EmbeddingDim = 768

// PGVectorStore persists chunk embeddings in Postgres with the pgvector
// extension. Similarity search runs entirely server-side, including the
// user filter, so unauthorized rows are never fetched.
type PGVectorStore struct {
	db *sql.DB
}

func NewPGVectorStore(connURL string) (*PGVectorStore, error) {
	db, err := sql.Open("postgres", connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PGVectorStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize pgvector schema: %w", err)
	}
	return store, nil
}

func (s *PGVectorStore) Close() error {
	return s.db.Close()
}

func (s *PGVectorStore) initSchema() error {
	schema := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS document_chunks (
        id UUID PRIMARY KEY,
        user_id TEXT NOT NULL,
        document_name TEXT NOT NULL,
        page_number INTEGER NOT NULL,
        content TEXT NOT NULL,
        embedding vector(%d) NOT NULL
    );

    CREATE INDEX IF NOT EXISTS document_chunks_user_id_idx ON document_chunks (user_id);
    `, EmbeddingDim)
	_, err := s.db.Exec(schema)
	return err
}

// AddChunks inserts chunks with their embedding vectors. Chunks and vectors
// are matched by index.
func (s *PGVectorStore) AddChunks(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	query := `
        INSERT INTO document_chunks (id, user_id, document_name, page_number, content, embedding)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	for i, chunk := range chunks {
		if _, err := s.db.ExecContext(
			ctx,
			query,
			uuid.NewString(),
			chunk.Metadata.UserID,
			chunk.Metadata.DocumentName,
			chunk.Metadata.PageNumber,
			chunk.PageContent,
			pgvector.NewVector(embeddings[i]),
		); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// SimilaritySearch returns the topK nearest chunks for the given embedding,
// most similar first. The userID filter is part of the query itself.
func (s *PGVectorStore) SimilaritySearch(ctx context.Context, embedding []float32, userID string, topK int) ([]Chunk, error) {
	query := `
        SELECT content, user_id, document_name, page_number
        FROM document_chunks
        WHERE user_id = $1
        ORDER BY embedding <=> $2
        LIMIT $3
    `

	rows, err := s.db.QueryContext(ctx, query, userID, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.PageContent, &c.Metadata.UserID, &c.Metadata.DocumentName, &c.Metadata.PageNumber); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunk rows: %w", err)
	}
	return chunks, nil
}

// DeleteByUserID removes every chunk belonging to the user. Called before
// inserting a new document's chunks so a user never holds chunks from two
// documents at once.
func (s *PGVectorStore) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM document_chunks WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to delete chunks for user: %w", err)
	}
	return nil
}
