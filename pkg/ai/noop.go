package ai

import "context"

// NoopProvider never calls out to a real model. It is the chain's last
// resort for local development and tests: structured requests get back an
// empty JSON object so callers relying on GenerateStructured degrade to
// their own zero-value handling instead of failing outright.
type NoopProvider struct{}

func (NoopProvider) Name() string { return "noop" }

func (NoopProvider) Generate(_ context.Context, req Request) (*Response, error) {
	if req.Schema != nil {
		return &Response{Text: "{}", Provider: "noop"}, nil
	}
	return &Response{Text: "", Provider: "noop"}, nil
}
