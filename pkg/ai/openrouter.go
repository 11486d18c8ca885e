package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// OpenRouterProvider calls the OpenRouter chat-completions API, which
// fronts dozens of underlying models behind one OpenAI-compatible schema.
type OpenRouterProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	maxRetries uint64
}

// NewOpenRouterProvider constructs a provider bound to apiKey and model.
// httpClient is shared with other providers by the caller (spec §4.4's
// "one bounded-timeout client for the whole chain").
func NewOpenRouterProvider(httpClient *http.Client, apiKey, model string) *OpenRouterProvider {
	return &OpenRouterProvider{
		httpClient: httpClient,
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://openrouter.ai/api/v1/chat/completions",
		maxRetries: 2,
	}
}

func (p *OpenRouterProvider) Name() string { return "openrouter:" + p.model }

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	ResponseFmt *responseFormat     `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}

type openRouterResponse struct {
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends req to OpenRouter, retrying transient failures within its
// own budget before returning control to the Chain (spec §4.4).
func (p *OpenRouterProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	body := openRouterRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openRouterMessage{Role: m.Role, Content: m.Content})
	}
	if req.Schema != nil {
		body.ResponseFmt = &responseFormat{Type: "json_schema", JSONSchema: req.Schema}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to encode request: %w", err)
	}

	var result *Response
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxRetries), ctx)

	op := func() error {
		resp, err := p.doRequest(ctx, payload)
		if err != nil {
			slog.Warn("openrouter request failed, retrying", "error", err)
			return err
		}
		result = resp
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *OpenRouterProvider) doRequest(ctx context.Context, payload []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("openrouter: failed to build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to read response: %w", err)
	}

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("openrouter: server error %d: %s", httpResp.StatusCode, string(raw))
	}
	if httpResp.StatusCode >= 400 {
		return nil, backoff.Permanent(fmt.Errorf("openrouter: client error %d: %s", httpResp.StatusCode, string(raw)))
	}

	var parsed openRouterResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("openrouter: malformed response body: %w", err))
	}
	if parsed.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("openrouter: %s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("openrouter: response contained no choices"))
	}

	return &Response{Text: parsed.Choices[0].Message.Content, Provider: p.Name()}, nil
}

// NewSharedHTTPClient returns the bounded-timeout *http.Client every
// provider in a chain shares (spec §4.4).
func NewSharedHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
