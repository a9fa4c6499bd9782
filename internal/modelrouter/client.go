package modelrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config configures the generation provider client.
type Config struct {
	BaseURL string        `env:"GENERATION_API_URL" envDefault:"https://openrouter.ai/api/v1"`
	APIKey  string        `env:"GENERATION_API_KEY,required"`
	Timeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`
}

// Message is a single chat message sent to the generation provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the provider-reported token and cost accounting for a completion.
// All fields default to zero when the provider omits them.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// Completion is a successful provider response.
type Completion struct {
	Content string
	Usage   Usage
}

// CompletionClient issues a single completion call against one model.
// Satisfied by *Client; test doubles substitute it in the router.
type CompletionClient interface {
	Complete(ctx context.Context, model string, messages []Message) (*Completion, error)
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidCredentials)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Complete issues one chat-completions request. Failures are classified into
// the package's typed errors by HTTP status so the router and HTTP layer can
// branch on semantics.
func (c *Client) Complete(ctx context.Context, model string, messages []Message) (*Completion, error) {
	if model == "" {
		return nil, ErrNoModelConfigured
	}

	reqBody := completionRequest{
		Model:    model,
		Messages: messages,
		Usage:    &usageOpts{Include: true},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: model %s", ErrEmptyCompletion, model)
	}

	return &Completion{
		Content: parsed.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
			Cost:             parsed.Usage.Cost,
		},
	}, nil
}

func classifyStatus(status int, body []byte) error {
	var errResp errorResponse
	detail := string(body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		detail = errResp.Error.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	case status >= 500:
		return fmt.Errorf("%w: status %s: %s", ErrProviderUnavailable, strconv.Itoa(status), detail)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, status, detail)
	}
}

// Provider wire types (OpenAI-compatible schema).

type completionRequest struct {
	Model    string     `json:"model"`
	Messages []Message  `json:"messages"`
	Usage    *usageOpts `json:"usage,omitempty"`
}

type usageOpts struct {
	Include bool `json:"include"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalTokens      int     `json:"total_tokens"`
		Cost             float64 `json:"cost"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}
