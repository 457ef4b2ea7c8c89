package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"

	// Transient model failures are retried at most this many times before
	// the request fails. There is deliberately no fallback: a failed
	// rewrite must not degrade into using the raw question.
	maxModelRetries = 2
)

type LLMService struct {
	client *genai.Client
}

func NewLLMService(ctx context.Context, apiKey string) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client}, nil
}

func (s *LLMService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

func (s *LLMService) chatModel() *genai.GenerativeModel {
	model := s.client.GenerativeModel(defaultChatModelName)
	temp := float32(0) // deterministic-leaning output for rewriting and answering
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: &temp,
	}
	return model
}

// Complete sends the prompt and returns the full response text, retrying
// transient failures up to maxModelRetries times.
func (s *LLMService) Complete(ctx context.Context, prompt string) (string, error) {
	model := s.chatModel()

	var lastErr error
	for attempt := 0; attempt <= maxModelRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt - 1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			continue
		}

		text := responseText(resp)
		if text == "" {
			lastErr = fmt.Errorf("gemini returned an empty response")
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("model call failed after %d retries: %w", maxModelRetries, lastErr)
}

// StreamCompletion sends the prompt and returns a channel of answer tokens.
// The token channel is closed when the stream ends; a mid-stream failure is
// delivered on the error channel and terminates the stream. Cancelling the
// context stops consumption of upstream model tokens.
func (s *LLMService) StreamCompletion(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	tokens := make(chan string)
	errs := make(chan error, 1)

	model := s.chatModel()

	go func() {
		defer close(tokens)
		defer close(errs)

		var lastErr error
		for attempt := 0; attempt <= maxModelRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(retryDelay(attempt - 1)):
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}

			iter := model.GenerateContentStream(ctx, genai.Text(prompt))
			sent := false
			for {
				resp, err := iter.Next()
				if err == iterator.Done {
					return
				}
				if err != nil {
					if sent {
						// A partial answer went out; the truncated
						// stream is the client's error signal.
						errs <- fmt.Errorf("stream failed mid-answer: %w", err)
						return
					}
					lastErr = err
					break // Retry from the top before anything was sent.
				}

				text := responseText(resp)
				if text == "" {
					continue
				}
				select {
				case tokens <- text:
					sent = true
				case <-ctx.Done():
					return
				}
			}
		}
		errs <- fmt.Errorf("model call failed after %d retries: %w", maxModelRetries, lastErr)
	}()

	return tokens, errs
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
