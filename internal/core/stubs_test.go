package core

import (
	"context"

	"docchat/internal/vectorstore"
)

// stubLLM implements LanguageModel with canned responses and captured
// inputs, following the function-valued dependency style used across the
// services.
type stubLLM struct {
	completion    string
	completeErr   error
	prompts       []string
	embedded      []string
	embedErr      error
	streamPrompts []string
	streamTokens  []string
	streamErr     error
}

func (s *stubLLM) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	s.embedded = append(s.embedded, text)
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return s.completion, nil
}

func (s *stubLLM) StreamCompletion(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	s.streamPrompts = append(s.streamPrompts, prompt)

	tokens := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(tokens)
		defer close(errs)
		for _, tok := range s.streamTokens {
			tokens <- tok
		}
		if s.streamErr != nil {
			errs <- s.streamErr
		}
	}()
	return tokens, errs
}

type stubSearcher struct {
	gotEmbeddings [][]float32
	gotUserIDs    []string
	gotTopKs      []int
	result        []vectorstore.Chunk
	err           error
}

func (s *stubSearcher) SimilaritySearch(ctx context.Context, embedding []float32, userID string, topK int) ([]vectorstore.Chunk, error) {
	s.gotEmbeddings = append(s.gotEmbeddings, embedding)
	s.gotUserIDs = append(s.gotUserIDs, userID)
	s.gotTopKs = append(s.gotTopKs, topK)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
