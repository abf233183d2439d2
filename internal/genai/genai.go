// Package genai abstracts the external text-completion capability used by
// the coaching agents.
//
// It exposes a single Completer interface with two implementations: a real
// OpenAI-backed client and a deterministic mock for tests and mock mode.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MindAthlete/backend/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Turn is one structured conversation turn sent to the completion service.
type Turn struct {
	Role    models.ChatRole
	Content string
}

// Completer is the single capability the agents depend on: a system
// instruction plus conversation turns in, free text out. Implementations are
// a network client and a deterministic mock.
type Completer interface {
	// Complete performs one completion call. No retries: callers substitute
	// local fallback content on error.
	Complete(ctx context.Context, systemPrompt string, turns []Turn) (string, error)
	// Model identifies the underlying model for response tagging.
	Model() string
}

// Opts holds configuration for the OpenAI client.
type Opts struct {
	APIKey    string
	ModelName string
	MaxTokens int64
}

// Option configures the OpenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.ModelName = model }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// Client performs completions against the OpenAI API.
type Client struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewClient initializes an OpenAI-backed completer. The API key falls back
// to the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModel
	}
	slog.Debug("genai.NewClient: creating OpenAI client", "model", cfg.ModelName, "max_tokens", cfg.MaxTokens)
	return &Client{
		client:    openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.ModelName,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends the system prompt and turns as one chat completion request
// and returns the raw text of the first choice.
func (c *Client) Complete(ctx context.Context, systemPrompt string, turns []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, turn := range turns {
		switch turn.Role {
		case models.ChatRoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		case models.ChatRoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(c.maxTokens)
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		slog.Error("genai.Client.Complete: completion call failed", "error", err, "model", c.model)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Mock is a deterministic Completer for tests: it always returns the
// configured response and error.
type Mock struct {
	Response  string
	Err       error
	ModelName string

	// Calls records the inputs of every Complete invocation.
	Calls []MockCall
}

// MockCall captures one Complete invocation.
type MockCall struct {
	SystemPrompt string
	Turns        []Turn
}

// Complete returns the canned response.
func (m *Mock) Complete(_ context.Context, systemPrompt string, turns []Turn) (string, error) {
	m.Calls = append(m.Calls, MockCall{SystemPrompt: systemPrompt, Turns: turns})
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

// Model returns the mock model tag.
func (m *Mock) Model() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "mock"
}
