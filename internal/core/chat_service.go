package core

import (
	"context"
	"log"
)

// ChatService runs the chat pipeline: rewrite the question, retrieve chunks
// scoped to the user, assemble context, and stream the generated answer.
type ChatService struct {
	rag *RAGService
}

func NewChatService(rag *RAGService) *ChatService {
	return &ChatService{rag: rag}
}

// StreamAnswer executes the pipeline stages strictly in sequence. The
// rewritten question is used only for retrieval; the answer prompt sees the
// user's original question. Errors in the pre-stream stages are returned
// directly; once streaming starts, failures arrive on the error channel.
func (s *ChatService) StreamAnswer(ctx context.Context, userID, question string, history []ChatMessage) (<-chan string, <-chan error, error) {
	standalone, err := s.rag.RewriteQuestion(ctx, question, history)
	if err != nil {
		return nil, nil, err
	}

	chunks, err := s.rag.Retrieve(ctx, standalone, userID)
	if err != nil {
		return nil, nil, err
	}
	if len(chunks) == 0 {
		log.Printf("No chunks retrieved for user %s; answering with empty context", userID)
	}

	contextText := CombineChunks(chunks)

	tokens, errs := s.rag.StreamAnswer(ctx, contextText, question)
	return tokens, errs, nil
}
