package harnessports

import (
	"context"
)

// PromptInput aggregates everything the provider needs to produce a completion.
type PromptInput struct {
	Messages []Turn            // ordered transcript, synthesized system turn first when present
	Meta     map[string]string // lightweight metadata for tracing
}

// Options controls sampling and limits.
type Options struct {
	MaxNewTokens int
	Temperature  float32
}

// Usage captures token accounting for cost/telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's non-streaming response.
type Completion struct {
	ID      string // opaque response id
	Created int64  // unix seconds, as reported by the API
	Text    string
	Usage   *Usage // optional usage information
}

// Provider is the abstraction for the remote chat-completion endpoint.
type Provider interface {
	Complete(ctx context.Context, in PromptInput, opts Options) (Completion, error)
}

// ProviderResolver returns the Provider registered under a provider id.
// Missing credentials are reported as an error, never a panic.
type ProviderResolver interface {
	Resolve(providerID string) (Provider, error)
}
