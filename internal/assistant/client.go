package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/models"
)

const DefaultBaseURL = "https://api.deepseek.com"

var ErrEmptyCompletion = errors.New("empty completion")

// Request is everything the generation service sees for one turn
type Request struct {
	UserMessage string
	Candidates  []models.Product
	Condition   models.Condition
}

// Generator produces the assistant's free-text reply
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Client talks to an OpenAI-compatible chat completion endpoint
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewClient(apiKey string, baseURL string, model string, maxTokens int, temperature float64, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	return &Client{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: SystemPrompt(req.Condition, len(req.Candidates)),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: UserPrompt(req.UserMessage, req.Candidates),
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("Received completion",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return content, nil
}
