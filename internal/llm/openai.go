package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type chatCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI talks to any OpenAI-compatible chat completions endpoint, including
// NVIDIA's hosted models.
type OpenAI struct {
	completions chatCompletions
	model       string
}

// NewOpenAI returns an OpenAI-compatible client.
func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{completions: &client.Chat.Completions, model: cfg.Model}
}

// Model returns the configured model name.
func (o *OpenAI) Model() string { return o.model }

// Complete sends one chat completion request.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	completion, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(MaxTokens),
		Temperature: openai.Float(Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("llm: openai: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", ErrEmpty
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmpty
	}
	return content, nil
}
