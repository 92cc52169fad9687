package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"podcastSummarize/config"
)

// Completer turns a prompt plus bounded context into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAICompleter calls an OpenAI-compatible chat completion endpoint.
type OpenAICompleter struct {
	cli         *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAICompleter builds a completer from the configured endpoint.
func NewOpenAICompleter(cfg *config.Config) *OpenAICompleter {
	return &OpenAICompleter{
		cli:         newOpenAIClient(cfg),
		model:       cfg.OpenAI.ChatModel,
		maxTokens:   1024,
		temperature: 0.3,
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// MockCompleter echoes a truncated view of the context it was given, so
// the pipeline remains exercisable without an API key.
type MockCompleter struct{}

func (MockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	const limit = 400
	body := prompt
	if idx := strings.Index(body, "\n\n"); idx >= 0 {
		body = body[idx+2:]
	}
	body = strings.TrimSpace(body)
	if len(body) > limit {
		body = body[:limit] + "..."
	}
	return "[mock summary] " + body, nil
}
