// Package llm is the only place the service talks to a hosted text model.
//
// A Client sends one system prompt and one user prompt and returns the raw
// text of the reply. Implementations make exactly one outbound request per
// call and never retry; callers bound the call with the context deadline.
package llm

import (
	"context"
	"fmt"
)

// ProviderType represents the type of model provider
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
	ProviderGroq   ProviderType = "groq"
)

// Options tune a single generation request.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
	// JSON asks the provider to bias its output toward a JSON document.
	JSON bool
}

// Client is the model client adapter shared by both pipeline stages.
type Client interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error)

func (f ClientFunc) Invoke(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	return f(ctx, systemPrompt, userPrompt, opts)
}

// InvocationError is returned for any transport or service failure.
type InvocationError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *InvocationError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s request failed", e.Provider)
	}
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

const maxErrorBody = 1024

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
