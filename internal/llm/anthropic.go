package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type messagesAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	messages messagesAPI
	model    string
}

// NewAnthropic returns an Anthropic client.
func NewAnthropic(cfg Config) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{messages: &client.Messages, model: cfg.Model}
}

// Model returns the configured model name.
func (a *Anthropic) Model() string { return a.model }

// Complete sends one Messages request and returns the first text block.
func (a *Anthropic) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: MaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("llm: anthropic: %w", err)
	}
	if msg == nil || len(msg.Content) == 0 {
		return "", ErrEmpty
	}
	content := msg.Content[0]
	if content.Type != "text" {
		return "", fmt.Errorf("llm: anthropic: unexpected block type %s", content.Type)
	}
	return content.Text, nil
}
