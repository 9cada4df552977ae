package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	DefaultGeminiModel   = "models/gemini-flash-latest"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
)

// ErrNoCandidates is returned when Gemini answers without any candidate text.
var ErrNoCandidates = errors.New("no candidates in response")

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithGeminiModel overrides the model name ("models/..." prefix optional).
func WithGeminiModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithGeminiBaseURL points the client at another host, e.g. a test server.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithGeminiHTTPClient replaces the default HTTP client. Its transport is
// wrapped with tracing.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.client = httpclient.WrapClient(client)
	}
}

// NewGeminiClient creates a Gemini client. An empty apiKey is accepted; the
// service rejects the first call instead.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		model:   DefaultGeminiModel,
		baseURL: DefaultGeminiBaseURL,
		client:  httpclient.NewInstrumentedClient(120 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !strings.HasPrefix(c.model, "models/") {
		c.model = "models/" + c.model
	}
	return c
}

// Invoke sends system and user prompt as one user turn and returns the reply text.
func (c *GeminiClient) Invoke(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		metrics.AIGenerationDuration.Record(ctx, duration, metric.WithAttributes(attribute.String("provider", string(ProviderGemini))))
	}()

	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: systemPrompt + "\n\n" + userPrompt}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	}
	if opts.JSON {
		req.GenerationConfig.ResponseMimeType = "application/json"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &InvocationError{Provider: "Gemini", Err: err}
	}

	url := fmt.Sprintf("%s/v1beta/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Gemini"), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &InvocationError{Provider: "Gemini", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &InvocationError{Provider: "Gemini", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &InvocationError{Provider: "Gemini", Err: err}
	}

	if resp.StatusCode >= 400 {
		return "", &InvocationError{Provider: "Gemini", StatusCode: resp.StatusCode, Body: truncateBody(respBody)}
	}

	var genResp geminiResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", &InvocationError{Provider: "Gemini", Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(genResp.Candidates) == 0 {
		err := ErrNoCandidates
		if reason := genResp.PromptFeedback.BlockReason; reason != "" {
			err = fmt.Errorf("%w (prompt blocked: %s)", ErrNoCandidates, reason)
		}
		return "", &InvocationError{Provider: "Gemini", Err: err}
	}

	var text strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}
