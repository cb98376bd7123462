// Package genai wraps the chat completion endpoint used to generate study material.
//
// The client speaks the OpenAI chat completions protocol through openai-go and
// defaults to Google's OpenAI-compatible Gemini endpoint.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
	// DefaultBaseURL is Google's OpenAI-compatible Gemini endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// APIKeyEnv is the environment variable consulted when no key option is given.
	APIKeyEnv = "GOOGLE_API_KEY"
)

var (
	// ErrMissingAPIKey is returned by NewClient when no credential is available.
	ErrMissingAPIKey = errors.New(APIKeyEnv + " not set")
	// ErrNoChoicesReturned is returned when the model answers with no choices.
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// chatService is the subset of the SDK chat completion service the client uses.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the credential explicitly instead of reading GOOGLE_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithRequestsPerMinute limits outgoing calls. Zero disables the limit.
func WithRequestsPerMinute(rpm int) Option {
	return func(o *Opts) { o.RequestsPerMinute = rpm }
}

// WithTimeout bounds each call. Zero leaves the caller's context untouched.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client issues single prompts to a fixed model.
type Client struct {
	chat    chatService
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient initializes a new GenAI client. The API key comes from WithAPIKey,
// falling back to the GOOGLE_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnv)
	}
	if cfg.APIKey == "" {
		slog.Error("genai.NewClient: API key not configured")
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	// the SDK retries 5xx and 429 by default; each Generate is one HTTP request
	cli := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	c := newClient(&cli.Chat.Completions, cfg)
	slog.Debug("genai.NewClient: client created", "model", c.model, "base_url", cfg.BaseURL, "rpm", cfg.RequestsPerMinute, "timeout", cfg.Timeout)
	return c, nil
}

func newClient(chat chatService, cfg Opts) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{chat: chat, model: cfg.Model, timeout: cfg.Timeout}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt as a single user message and returns the first choice
// verbatim. It makes exactly one attempt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	start := time.Now()
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Warn("genai.Client.Generate: completion request failed", "model", c.model, "error", err, "elapsed", time.Since(start))
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		slog.Warn("genai.Client.Generate: completion returned no choices", "model", c.model)
		return "", ErrNoChoicesReturned
	}
	slog.Debug("genai.Client.Generate: completion received", "model", c.model, "prompt_len", len(prompt), "response_len", len(resp.Choices[0].Message.Content), "elapsed", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}
