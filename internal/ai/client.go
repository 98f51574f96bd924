package ai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel     = openai.GPT3Dot5Turbo1106
	DefaultMaxTokens = 2048
)

// chatCompleter is the part of [openai.Client] the Client uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey string
	// BaseURL overrides the OpenAI endpoint, e.g. for a compatible proxy. Empty keeps the default.
	BaseURL   string
	Model     string
	MaxTokens int
}

// Client is the generation service used for trip guides and tag selection.
type Client struct {
	client    chatCompleter
	hasKey    bool
	model     string
	maxTokens int
	logger    *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Client{
		client:    openai.NewClientWithConfig(config),
		hasKey:    cfg.APIKey != "",
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With("source", "ai.Client"),
	}
}

// Complete sends a system and a user message and returns the text of the first choice.
//
// Failures are returned as [*Error] so that callers can decide on retries and user messaging.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.hasKey {
		return "", &Error{Kind: KindAuth, StatusCode: 0, Err: errors.New("OPENAI_API_KEY not configured")}
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system}, //nolint:exhaustruct // plain text message
			{Role: openai.ChatMessageRoleUser, Content: user},     //nolint:exhaustruct // plain text message
		},
	})
	if err != nil {
		classified := Classify(err)
		c.logger.LogAttrs(ctx, slog.LevelWarn, "chat completion failed",
			slog.String("kind", string(classified.Kind)),
			slog.Int("status", classified.StatusCode),
			errors.SlogError(err),
		)
		return "", classified
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &Error{Kind: KindEmpty, StatusCode: 0, Err: errors.New("no content in completion",
			slog.Int("choices", len(resp.Choices)))}
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion",
		slog.String("model", resp.Model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
