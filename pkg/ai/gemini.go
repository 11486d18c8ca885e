package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// GeminiProvider calls the Gemini generateContent REST API directly
// (no SDK dependency carried into the pack, matching spec §4.4's decision
// to keep the AI Client transport-agnostic and HTTP-based).
type GeminiProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	maxRetries uint64
}

// NewGeminiProvider constructs a provider bound to apiKey and model.
func NewGeminiProvider(httpClient *http.Client, apiKey, model string) *GeminiProvider {
	return &GeminiProvider{httpClient: httpClient, apiKey: apiKey, model: model, maxRetries: 2}
}

func (p *GeminiProvider) Name() string { return "gemini:" + p.model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends req to Gemini, separating any "system" message into
// systemInstruction the way the Gemini API requires.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	body := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.Schema != nil {
		body.GenerationConfig.ResponseMimeType = "application/json"
		body.GenerationConfig.ResponseSchema = req.Schema
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to encode request: %w", err)
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", p.model, p.apiKey)

	var result *Response
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxRetries), ctx)

	op := func() error {
		resp, err := p.doRequest(ctx, url, payload)
		if err != nil {
			slog.Warn("gemini request failed, retrying", "error", err)
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

func (p *GeminiProvider) doRequest(ctx context.Context, url string, payload []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("gemini: failed to build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to read response: %w", err)
	}

	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("gemini: server error %d: %s", httpResp.StatusCode, string(raw))
	}
	if httpResp.StatusCode >= 400 {
		return nil, backoff.Permanent(fmt.Errorf("gemini: client error %d: %s", httpResp.StatusCode, string(raw)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("gemini: malformed response body: %w", err))
	}
	if parsed.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("gemini: %s", parsed.Error.Message))
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("gemini: response contained no candidates"))
	}

	return &Response{Text: parsed.Candidates[0].Content.Parts[0].Text, Provider: p.Name()}, nil
}
