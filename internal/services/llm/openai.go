package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/perfumepal/blender/internal/httpclient"
	"github.com/perfumepal/blender/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGroqModel     = "llama-3.3-70b-versatile"
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
)

// ErrNoChoices is returned when a chat completion has no choices.
var ErrNoChoices = errors.New("no choices in response")

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIClient calls an OpenAI-compatible chat completions endpoint (OpenAI, Groq).
type OpenAIClient struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a client for api.openai.com.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	return newChatClient("OpenAI", apiKey, model, DefaultOpenAIModel, baseURL, DefaultOpenAIBaseURL)
}

// NewGroqClient creates a client for Groq's OpenAI-compatible API.
func NewGroqClient(apiKey, model, baseURL string) *OpenAIClient {
	return newChatClient("Groq", apiKey, model, DefaultGroqModel, baseURL, DefaultGroqBaseURL)
}

func newChatClient(name, apiKey, model, defaultModel, baseURL, defaultBaseURL string) *OpenAIClient {
	if model == "" {
		model = defaultModel
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIClient{
		name:    name,
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpclient.NewInstrumentedClient(120 * time.Second),
	}
}

// Invoke sends the prompts as system and user messages.
func (c *OpenAIClient) Invoke(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		metrics.AIGenerationDuration.Record(ctx, duration, metric.WithAttributes(attribute.String("provider", strings.ToLower(c.name))))
	}()

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &InvocationError{Provider: c.name, Err: err}
	}
	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, c.name), http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &InvocationError{Provider: c.name, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &InvocationError{Provider: c.name, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &InvocationError{Provider: c.name, Err: err}
	}

	if resp.StatusCode >= 400 {
		return "", &InvocationError{Provider: c.name, StatusCode: resp.StatusCode, Body: truncateBody(respBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", &InvocationError{Provider: c.name, Err: err}
	}

	if len(chatResp.Choices) == 0 {
		return "", &InvocationError{Provider: c.name, Err: ErrNoChoices}
	}

	return chatResp.Choices[0].Message.Content, nil
}
