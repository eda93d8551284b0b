package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/JaimeStill/concord/internal/config"
)

const anthropicMaxTokens = 2048

// Anthropic completes chats through the Anthropic messages API.
type Anthropic struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// NewAnthropic creates an Anthropic chat client from a role config.
func NewAnthropic(cfg config.AgentConfig) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.TemperatureValue(),
	}
}

func (c *Anthropic) Complete(ctx context.Context, system, user string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic %s: %w", c.model, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic %s: %w", c.model, ErrEmptyResponse)
	}
	return sb.String(), nil
}
