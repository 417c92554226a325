// Package completion is a minimal client for OpenAI-compatible chat
// completion endpoints such as DeepSeek's.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/context-relay/relay/config"
	"github.com/ZanzyTHEbar/context-relay/relay/guardrails"
	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/ZanzyTHEbar/context-relay/relay/logutil"
	"github.com/rs/zerolog"
)

const maxResponseBytes = 8 << 20

var responseValidator = guardrails.MustJSONValidator(`{
  "type": "object",
  "required": ["choices"],
  "properties": {
    "id":      {"type": "string"},
    "created": {"type": "integer"},
    "choices": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "properties": {
              "content": {"type": ["string", "null"]}
            }
          }
        }
      }
    },
    "usage": {
      "type": ["object", "null"],
      "properties": {
        "prompt_tokens":     {"type": "integer"},
        "completion_tokens": {"type": "integer"},
        "total_tokens":      {"type": "integer"}
      }
    }
  }
}`)

type chatRequest struct {
	Model       string       `json:"model"`
	Messages    []ports.Turn `json:"messages"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float32      `json:"temperature"`
	Stream      bool         `json:"stream"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Client sends non-streaming chat completion requests.
type Client struct {
	provider    string
	apiKey      string
	url         string
	model       string
	maxTokens   int
	temperature float32
	httpClient  *http.Client
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client; its timeout is kept as is.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client for provider using the completion config section.
func NewClient(provider, apiKey string, cfg config.CompletionConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		provider:    provider,
		apiKey:      apiKey,
		url:         cfg.BaseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends in.Messages and returns the first choice. Non-zero opts
// override the configured max_tokens and temperature.
func (c *Client) Complete(ctx context.Context, in ports.PromptInput, opts ports.Options) (ports.Completion, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    in.Messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      false,
	}
	if opts.MaxNewTokens > 0 {
		reqBody.MaxTokens = opts.MaxNewTokens
	}
	if opts.Temperature != 0 {
		reqBody.Temperature = opts.Temperature
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ports.Completion{}, &APIError{Kind: Decode, Provider: c.provider, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return ports.Completion{}, &APIError{Kind: Transport, Provider: c.provider, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.Completion{}, &APIError{Kind: Transport, Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.Completion{}, &APIError{Kind: Transport, Provider: c.provider, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := guardrails.Redact(logutil.Truncate(strings.TrimSpace(string(body)), 400))
		c.logger.Error().
			Str("provider", c.provider).
			Int("status", resp.StatusCode).
			Str("body", detail).
			Msg("completion request rejected")
		return ports.Completion{}, &APIError{Kind: StatusCode, Provider: c.provider, Status: resp.StatusCode, Message: detail}
	}

	if err := responseValidator.Validate(body); err != nil {
		c.logFailedBody("completion response failed validation", body)
		return ports.Completion{}, &APIError{Kind: Decode, Provider: c.provider, Message: "unexpected response shape", Err: err}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logFailedBody("completion response could not be decoded", body)
		return ports.Completion{}, &APIError{Kind: Decode, Provider: c.provider, Message: "failed to decode response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		c.logFailedBody("completion response has no choices", body)
		return ports.Completion{}, &APIError{Kind: Decode, Provider: c.provider, Message: "response contains no choices"}
	}

	out := ports.Completion{ID: parsed.ID, Created: parsed.Created}
	if content := parsed.Choices[0].Message.Content; content != nil {
		out.Text = *content
	}
	if parsed.Usage != nil {
		out.Usage = &ports.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}

	c.logger.Debug().
		Str("provider", c.provider).
		Str("model", c.model).
		Str("response_id", out.ID).
		Dur("latency", time.Since(start)).
		Msg("completion received")
	return out, nil
}

func (c *Client) logFailedBody(msg string, body []byte) {
	c.logger.Error().
		Str("provider", c.provider).
		Str("body", guardrails.Redact(logutil.Truncate(string(body), 400))).
		Msg(msg)
}

var _ ports.Provider = (*Client)(nil)
