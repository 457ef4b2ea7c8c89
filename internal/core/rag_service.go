package core

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/vectorstore"
)

const standaloneTemplate = `Given some conversation history and a question, convert the question to a standalone question.
conversation history: %s
question: %s
standalone question:`

const answerTemplate = `You are a helpful and enthusiastic support bot who answers questions based on the provided context.
The context is a series of chunks of a document uploaded by the user.
Your goal is to find the most relevant information from the context to answer the question.

- If you don't know the answer or cannot find it in the context, say, "I don't know," and do not fabricate an answer.
- Never mention the chunk number.
- Always respond in a friendly and conversational tone.

Context:
%s

Question:
%s

Answer:`

// LanguageModel is the slice of the LLM client the RAG pipeline needs.
type LanguageModel interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, prompt string) (string, error)
	StreamCompletion(ctx context.Context, prompt string) (<-chan string, <-chan error)
}

// ChunkSearcher performs filtered similarity search. The userID argument is
// mandatory on every call so cross-user chunks are never reachable.
type ChunkSearcher interface {
	SimilaritySearch(ctx context.Context, embedding []float32, userID string, topK int) ([]vectorstore.Chunk, error)
}

type RAGService struct {
	llm    LanguageModel
	chunks ChunkSearcher
	topK   int
}

func NewRAGService(llm LanguageModel, chunks ChunkSearcher, topK int) *RAGService {
	if topK <= 0 {
		topK = 4
	}
	return &RAGService{
		llm:    llm,
		chunks: chunks,
		topK:   topK,
	}
}

// RewriteQuestion turns a follow-up question plus conversation history into
// a standalone question usable as a retrieval query. A model failure after
// retries is surfaced to the caller; the raw question is never substituted.
func (s *RAGService) RewriteQuestion(ctx context.Context, question string, history []ChatMessage) (string, error) {
	prompt := fmt.Sprintf(standaloneTemplate, formatHistory(history), question)
	standalone, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to rewrite question: %w", err)
	}
	return strings.TrimSpace(standalone), nil
}

// Retrieve embeds the query and returns the topK most similar chunks for the
// user, most similar first. No matches yields an empty slice, not an error.
func (s *RAGService) Retrieve(ctx context.Context, query, userID string) ([]vectorstore.Chunk, error) {
	embedding, err := s.llm.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := s.chunks.SimilaritySearch(ctx, embedding, userID, s.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return chunks, nil
}

// StreamAnswer generates the answer for the question constrained to the
// assembled context, streamed token by token.
func (s *RAGService) StreamAnswer(ctx context.Context, contextText, question string) (<-chan string, <-chan error) {
	prompt := fmt.Sprintf(answerTemplate, contextText, question)
	return s.llm.StreamCompletion(ctx, prompt)
}

// CombineChunks joins chunk contents with newlines, preserving retrieval
// order. Pure and deterministic.
func CombineChunks(chunks []vectorstore.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, chunk.PageContent)
	}
	return strings.Join(parts, "\n")
}

func formatHistory(history []ChatMessage) string {
	if len(history) == 0 {
		return "(no prior conversation)"
	}
	var b strings.Builder
	for _, msg := range history {
		b.WriteString(msg.Sender)
		b.WriteString(": ")
		b.WriteString(msg.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
