package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyReport is returned when the model answers without text
var ErrEmptyReport = errors.New("model returned an empty report")

// contentGenerator is the slice of genai.Models the advisor needs
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client generates strategy reports
type Client struct {
	models contentGenerator
	model  string
	log    zerolog.Logger
}

// NewClient creates a Gemini-backed advisor
func NewClient(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newClient(gc.Models, model, log), nil
}

func newClient(models contentGenerator, model string, log zerolog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		models: models,
		model:  model,
		log:    log.With().Str("client", "advisor").Logger(),
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// GenerateReport asks the model for a Markdown strategy report on the given portfolio
func (c *Client) GenerateReport(ctx context.Context, in Input) (string, error) {
	prompt, err := BuildPrompt(BuildContext(in))
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
	}

	c.log.Info().Str("model", c.model).Int("holdings", len(in.Holdings)).Msg("Requesting strategy report")

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		c.log.Error().Err(err).Msg("Strategy report generation failed")
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	report := strings.TrimSpace(resp.Text())
	if report == "" {
		return "", ErrEmptyReport
	}
	return report, nil
}
