package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"docchat/internal/store"
	"docchat/internal/vectorstore"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

// FileStore persists the raw uploaded file, keyed by name with overwrite.
type FileStore interface {
	SaveDocument(name string, data []byte) error
	GetDocumentByPrefix(prefix string) (*store.StoredDocument, error)
}

// ChunkWriter holds embedded chunks and supports bulk replacement per user.
type ChunkWriter interface {
	AddChunks(ctx context.Context, chunks []vectorstore.Chunk, embeddings [][]float32) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// Embedder produces the embedding vector for a piece of text.
type Embedder func(ctx context.Context, text string) ([]float32, error)

// PageExtractor returns per-page plain text for an uploaded file.
type PageExtractor func(data []byte) ([]string, error)

type DocumentService struct {
	files    FileStore
	chunks   ChunkWriter
	embed    Embedder
	extract  PageExtractor
	splitter textsplitter.RecursiveCharacter
}

func NewDocumentService(files FileStore, chunks ChunkWriter, embed Embedder, extract PageExtractor) *DocumentService {
	return &DocumentService{
		files:   files,
		chunks:  chunks,
		embed:   embed,
		extract: extract,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Ingest runs the upload pipeline: persist the raw file, extract per-page
// text, split into overlapping chunks tagged with metadata, drop the user's
// prior embeddings, then embed and store the new chunks. Any failure aborts
// the operation with a client-visible error. The delete runs before the
// insert so a user never holds chunks from two documents; a failure between
// the two leaves the user with no retrievable document, which is reported,
// not hidden.
func (s *DocumentService) Ingest(ctx context.Context, userID, filename string, data []byte) error {
	ext := fileExtension(filename)
	if ext == "" {
		return ErrNoExtension
	}
	name := userID + "." + ext

	if err := s.files.SaveDocument(name, data); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	pages, err := s.extract(data)
	if err != nil {
		return fmt.Errorf("failed to extract document text: %w", err)
	}

	var chunks []vectorstore.Chunk
	for pageIdx, page := range pages {
		parts, err := s.splitter.SplitText(page)
		if err != nil {
			return fmt.Errorf("failed to split page %d: %w", pageIdx+1, err)
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, vectorstore.Chunk{
				PageContent: part,
				Metadata: vectorstore.ChunkMetadata{
					UserID:       userID,
					DocumentName: name,
					PageNumber:   pageIdx + 1,
				},
			})
		}
	}

	if err := s.chunks.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete prior embeddings: %w", err)
	}

	embeddings := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.embed(ctx, chunk.PageContent)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i+1, err)
		}
		embeddings = append(embeddings, vec)
	}

	if err := s.chunks.AddChunks(ctx, chunks, embeddings); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}

	log.Printf("Ingested %d chunks across %d pages for user %s", len(chunks), len(pages), userID)
	return nil
}

// Fetch returns the user's most recent upload.
func (s *DocumentService) Fetch(ctx context.Context, userID string) (*store.StoredDocument, error) {
	doc, err := s.files.GetDocumentByPrefix(userID)
	if err != nil {
		return nil, fmt.Errorf("document search failed: %w", err)
	}
	if doc == nil {
		return nil, ErrNoDocument
	}
	return doc, nil
}

func fileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}
