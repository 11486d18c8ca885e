// Package orchestrator implements the chat routing pipeline (C6): intent
// classification, node reference resolution, and dispatch to the Planner
// agent or a direct explanation, per spec §4.6.
package orchestrator

import (
	"errors"

	"github.com/tripforge/itineraryd/pkg/model"
)

// ErrTextTooLong is returned by Validate when ChatRequest.Text exceeds the
// 1000-character limit (spec §4.6).
var ErrTextTooLong = errors.New("orchestrator: text exceeds 1000 characters")

// ErrDayRequired is returned by Validate when Scope is day-scoped but Day
// is unset.
var ErrDayRequired = errors.New("orchestrator: day is required when scope is \"day\"")

// ErrTextEmpty is returned by Validate when Text is empty.
var ErrTextEmpty = errors.New("orchestrator: text must not be empty")

const maxTextLen = 1000

// ChatRequest is the input to Route (spec §4.6).
type ChatRequest struct {
	ItineraryID    string       `json:"itineraryId"`
	Scope          model.Scope  `json:"scope"`
	Day            int          `json:"day,omitempty"`
	SelectedNodeID string       `json:"selectedNodeId,omitempty"`
	Text           string       `json:"text"`
	AutoApply      bool         `json:"autoApply"`
	UserID         string       `json:"userId,omitempty"`
}

// Validate enforces the structural constraints spec §4.6 places on a
// ChatRequest before it reaches intent classification.
func (r *ChatRequest) Validate() error {
	if r.Text == "" {
		return ErrTextEmpty
	}
	if len(r.Text) > maxTextLen {
		return ErrTextTooLong
	}
	if r.Scope == model.ScopeDay && r.Day <= 0 {
		return ErrDayRequired
	}
	return nil
}

// NodeCandidate is one match returned by reference resolution when more
// than one node plausibly satisfies a mutating request.
type NodeCandidate struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Day        int             `json:"day"`
	Type       model.NodeType  `json:"type"`
	Location   model.Location  `json:"location"`
	Confidence float64         `json:"confidence"`
}

// ChatResponse is the output of Route (spec §4.6).
type ChatResponse struct {
	Intent              Intent             `json:"intent"`
	Message             string             `json:"message"`
	ChangeSet           *model.ChangeSet   `json:"changeSet,omitempty"`
	Diff                *model.Diff        `json:"diff,omitempty"`
	Applied             bool               `json:"applied"`
	ToVersion           int                `json:"toVersion,omitempty"`
	Warnings            []string           `json:"warnings,omitempty"`
	NeedsDisambiguation bool               `json:"needsDisambiguation"`
	Candidates          []NodeCandidate    `json:"candidates,omitempty"`
	Errors              []string           `json:"errors,omitempty"`
}
