package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicChat is a ChatModel backed by the Anthropic messages API.
type AnthropicChat struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicChat creates an Anthropic chat backend. Empty model defaults
// to claude-3-5-haiku-latest.
func NewAnthropicChat(apiKey, model string) *AnthropicChat {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicChat{
		client:    &client,
		model:     model,
		maxTokens: 1024,
	}
}

func (c *AnthropicChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic chat: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic chat: empty response")
	}
	return sb.String(), nil
}
