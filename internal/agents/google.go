package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/JaimeStill/concord/internal/config"
)

// Google completes chats through the Gemini API. A client is opened per
// call because the SDK binds its connection to the creating context.
type Google struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
}

// NewGoogle creates a Gemini chat client from a role config.
func NewGoogle(cfg config.AgentConfig) *Google {
	return &Google{
		apiKey:      cfg.APIKey,
		endpoint:    cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.TemperatureValue(),
	}
}

func (c *Google) Complete(ctx context.Context, system, user string) (string, error) {
	opts := []option.ClientOption{option.WithAPIKey(c.apiKey)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("google client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(float32(c.temperature))

	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("google %s: %w", c.model, err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("google %s: %w", c.model, ErrEmptyResponse)
	}
	return sb.String(), nil
}
