package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/vectorstore"
)

func collectStream(t *testing.T, tokens <-chan string, errs <-chan error) string {
	t.Helper()
	var b strings.Builder
	for tok := range tokens {
		b.WriteString(tok)
	}
	require.NoError(t, <-errs)
	return b.String()
}

func TestStreamAnswerPipeline(t *testing.T) {
	llm := &stubLLM{
		completion:   "What does page two of the report say?",
		streamTokens: []string{"Page two ", "covers revenue."},
	}
	searcher := &stubSearcher{result: []vectorstore.Chunk{
		{PageContent: "revenue grew 12%", Metadata: vectorstore.ChunkMetadata{UserID: "alice", PageNumber: 2}},
		{PageContent: "costs were flat", Metadata: vectorstore.ChunkMetadata{UserID: "alice", PageNumber: 2}},
	}}

	svc := NewChatService(NewRAGService(llm, searcher, 4))

	history := []ChatMessage{{Sender: SenderUser, Text: "I uploaded the annual report."}}
	tokens, errs, err := svc.StreamAnswer(context.Background(), "alice", "What is on page 2?", history)
	require.NoError(t, err)

	answer := collectStream(t, tokens, errs)
	assert.Equal(t, "Page two covers revenue.", answer)

	// Retrieval used the rewritten standalone question, scoped to the user.
	assert.Equal(t, []string{"What does page two of the report say?"}, llm.embedded)
	assert.Equal(t, []string{"alice"}, searcher.gotUserIDs)

	// The answer prompt carries the original question and the assembled
	// context, not the rewritten question.
	require.Len(t, llm.streamPrompts, 1)
	assert.Contains(t, llm.streamPrompts[0], "What is on page 2?")
	assert.Contains(t, llm.streamPrompts[0], "revenue grew 12%\ncosts were flat")
	assert.NotContains(t, llm.streamPrompts[0], "What does page two of the report say?")
}

func TestStreamAnswerRewriteFailureAborts(t *testing.T) {
	llm := &stubLLM{completeErr: errors.New("model unavailable")}
	searcher := &stubSearcher{}
	svc := NewChatService(NewRAGService(llm, searcher, 4))

	_, _, err := svc.StreamAnswer(context.Background(), "alice", "How long is it?", nil)
	require.Error(t, err)

	// No fallback to the raw question: retrieval never ran.
	assert.Empty(t, searcher.gotUserIDs)
	assert.Empty(t, llm.streamPrompts)
}

func TestStreamAnswerRetrievalFailureAborts(t *testing.T) {
	llm := &stubLLM{completion: "standalone"}
	searcher := &stubSearcher{err: errors.New("store down")}
	svc := NewChatService(NewRAGService(llm, searcher, 4))

	_, _, err := svc.StreamAnswer(context.Background(), "alice", "question", nil)
	require.Error(t, err)
	assert.Empty(t, llm.streamPrompts)
}

func TestStreamAnswerEmptyRetrievalStillAnswers(t *testing.T) {
	llm := &stubLLM{
		completion:   "standalone question",
		streamTokens: []string{"I don't know."},
	}
	svc := NewChatService(NewRAGService(llm, &stubSearcher{}, 4))

	tokens, errs, err := svc.StreamAnswer(context.Background(), "alice", "What is the moon made of?", nil)
	require.NoError(t, err)

	answer := collectStream(t, tokens, errs)
	assert.Equal(t, "I don't know.", answer)

	// The generator still ran, with an empty context block.
	require.Len(t, llm.streamPrompts, 1)
	assert.Contains(t, llm.streamPrompts[0], "Context:\n\n")
}

func TestStreamAnswerMidStreamErrorSurfaces(t *testing.T) {
	llm := &stubLLM{
		completion:   "standalone",
		streamTokens: []string{"partial "},
		streamErr:    errors.New("stream cut"),
	}
	svc := NewChatService(NewRAGService(llm, &stubSearcher{}, 4))

	tokens, errs, err := svc.StreamAnswer(context.Background(), "alice", "question", nil)
	require.NoError(t, err)

	var got []string
	for tok := range tokens {
		got = append(got, tok)
	}
	assert.Equal(t, []string{"partial "}, got)
	assert.Error(t, <-errs)
}
