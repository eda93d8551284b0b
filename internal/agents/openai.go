package agents

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/JaimeStill/concord/internal/config"
)

// OpenAI completes chats through the OpenAI chat completions API or any
// compatible endpoint set by base_url.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAI creates an OpenAI chat client from a role config.
func NewOpenAI(cfg config.AgentConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.TemperatureValue(),
	}
}

func (c *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: openai.Ptr(shared.NewResponseFormatJSONObjectParam()),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", c.model, err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai %s: %w", c.model, ErrEmptyResponse)
	}
	return completion.Choices[0].Message.Content, nil
}
