// Package prompt builds the message lists and JSON schemas the Planner
// agent sends to the AI client. Stateless and side-effect free: all state
// comes from parameters.
package prompt

import (
	"fmt"
	"strings"

	"github.com/tripforge/itineraryd/pkg/ai"
	"github.com/tripforge/itineraryd/pkg/model"
)

const itinerarySystemMessage = `You are a travel planning assistant that produces structured itinerary documents. ` +
	`Always respond with a single JSON object matching the supplied schema exactly. ` +
	`Never include commentary outside the JSON object.`

// InitialGenerationRequest carries the inputs to a from-scratch itinerary.
type InitialGenerationRequest struct {
	Destination string
	StartDate   string
	EndDate     string
	Adults      int
	Children    int
	BudgetTier  string
	Interests   []string
	Language    string
}

// BuildInitialGeneration composes the AI request for Planner Agent's
// initial-generation mode (spec §4.5). The caller unmarshals the response
// text into a document shaped by itineraryDocumentSchema.
func BuildInitialGeneration(req InitialGenerationRequest) ai.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a trip to %s from %s to %s for %d adult(s)", req.Destination, req.StartDate, req.EndDate, req.Adults)
	if req.Children > 0 {
		fmt.Fprintf(&b, " and %d child(ren)", req.Children)
	}
	b.WriteString(".\n")
	if req.BudgetTier != "" {
		fmt.Fprintf(&b, "Budget tier: %s.\n", req.BudgetTier)
	}
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(req.Interests, ", "))
	}
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	fmt.Fprintf(&b, "Respond in %s. Produce one day entry per calendar day in range, each with an ordered list of nodes (attraction, meal, accommodation, or transport) and the transit edges between them.\n", lang)

	return ai.Request{
		Messages: []ai.Message{
			{Role: "system", Content: itinerarySystemMessage},
			{Role: "user", Content: b.String()},
		},
		Schema:      itineraryDocumentSchema,
		Temperature: 0.4,
		MaxTokens:   4096,
	}
}

// BuildModification composes the AI request for Planner Agent's
// modification mode: the current document plus a natural-language request,
// asking for a ChangeSet conforming to spec §3.4's schema.
func BuildModification(current *model.Itinerary, request string) (ai.Request, error) {
	doc, err := summarizeForPrompt(current)
	if err != nil {
		return ai.Request{}, err
	}

	var b strings.Builder
	b.WriteString("Here is the current itinerary document:\n")
	b.WriteString(doc)
	b.WriteString("\n\nThe traveler asked: ")
	b.WriteString(request)
	b.WriteString("\n\nRespond with a ChangeSet describing the minimal set of operations to satisfy the request. ")
	b.WriteString("Never target a node whose \"locked\" field is true. Use node ids exactly as given above.")

	return ai.Request{
		Messages: []ai.Message{
			{Role: "system", Content: itinerarySystemMessage},
			{Role: "user", Content: b.String()},
		},
		Schema:      changeSetSchema,
		Temperature: 0.2,
		MaxTokens:   2048,
	}, nil
}
