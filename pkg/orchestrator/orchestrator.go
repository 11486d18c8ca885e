package orchestrator

import (
	"context"
	"fmt"

	"github.com/tripforge/itineraryd/pkg/agent"
	"github.com/tripforge/itineraryd/pkg/ai"
	"github.com/tripforge/itineraryd/pkg/engine"
	"github.com/tripforge/itineraryd/pkg/model"
)

// AIClient is the subset of ai.Chain the orchestrator needs for intent
// classification fallback. Narrowed to an interface for testability,
// mirroring agent.AIClient.
type AIClient interface {
	GenerateStructured(ctx context.Context, req ai.Request, v any) (*ai.Response, error)
}

// Engine is the subset of engine.Engine the orchestrator drives.
type Engine interface {
	Get(ctx context.Context, itineraryID string) (*model.Itinerary, error)
	Propose(ctx context.Context, itineraryID string, cs *model.ChangeSet) (*engine.ProposeResult, error)
	Apply(ctx context.Context, itineraryID string, cs *model.ChangeSet) (*engine.ApplyResult, error)
}

// Planner is the subset of agent.PlannerAgent the orchestrator needs in
// modification mode.
type Planner interface {
	Run(ctx context.Context, in agent.Input) (*model.ChangeSet, error)
}

// Orchestrator implements Route (spec §4.6): classify intent, resolve node
// references, dispatch to the Planner agent or a direct explanation, and
// either apply or preview the result.
type Orchestrator struct {
	engine  Engine
	planner Planner
	ai      AIClient
}

// New constructs an Orchestrator. ai may be nil, in which case intent
// classification relies solely on the rule-based table.
func New(engine Engine, planner Planner, aiClient AIClient) *Orchestrator {
	return &Orchestrator{engine: engine, planner: planner, ai: aiClient}
}

// Route runs the full chat pipeline described in spec §4.6.
func (o *Orchestrator) Route(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return &ChatResponse{Intent: IntentUnknown, Applied: false, Errors: []string{err.Error()}}, nil
	}

	current, err := o.engine.Get(ctx, req.ItineraryID)
	if err != nil {
		return nil, err
	}

	intent, ok := classifyRuleBased(req.Text)
	if !ok {
		intent = classifyWithAI(ctx, o.ai, req.Text)
	}

	if intent == IntentUnknown {
		return &ChatResponse{
			Intent:  IntentUnknown,
			Message: "I couldn't understand that request.",
			Errors:  []string{"unable to classify intent"},
		}, nil
	}

	if intent == IntentExplain {
		return &ChatResponse{
			Intent:  IntentExplain,
			Message: explain(current, req),
			Applied: false,
		}, nil
	}

	candidates := resolveCandidates(current, req)
	if len(candidates) == 0 && req.SelectedNodeID == "" {
		return &ChatResponse{
			Intent:  intent,
			Message: "I couldn't find a matching item in the itinerary.",
			Errors:  []string{"no matching node"},
		}, nil
	}
	if needsDisambiguation(candidates) {
		return &ChatResponse{
			Intent:              intent,
			Message:             "Which one did you mean?",
			NeedsDisambiguation: true,
			Candidates:          candidates,
		}, nil
	}

	cs, err := o.planner.Run(ctx, agent.Input{ItineraryID: req.ItineraryID, Current: current, Request: req.Text})
	if err != nil {
		return &ChatResponse{
			Intent:  intent,
			Message: "I wasn't able to compute that change.",
			Errors:  []string{err.Error()},
		}, nil
	}

	if req.AutoApply {
		applied, err := o.engine.Apply(ctx, req.ItineraryID, cs)
		if err != nil {
			return &ChatResponse{Intent: intent, ChangeSet: cs, Applied: false, Errors: []string{err.Error()}}, nil
		}
		return &ChatResponse{
			Intent:    intent,
			Message:   "Done.",
			ChangeSet: cs,
			Diff:      applied.Diff,
			Applied:   true,
			ToVersion: applied.ToVersion,
			Warnings:  applied.Diff.Warnings,
		}, nil
	}

	proposed, err := o.engine.Propose(ctx, req.ItineraryID, cs)
	if err != nil {
		return &ChatResponse{Intent: intent, ChangeSet: cs, Applied: false, Errors: []string{err.Error()}}, nil
	}
	return &ChatResponse{
		Intent:    intent,
		Message:   "Here's what I'd change.",
		ChangeSet: cs,
		Diff:      proposed.Diff,
		Applied:   false,
		Warnings:  proposed.Diff.Warnings,
	}, nil
}

// explain synthesizes a textual answer from the current document without
// producing a ChangeSet (spec §4.6 step 3).
func explain(current *model.Itinerary, req ChatRequest) string {
	if req.SelectedNodeID != "" {
		if node, day, ok := current.FindNode(req.SelectedNodeID); ok {
			return fmt.Sprintf("%s on day %d is a %s scheduled with status %q.", node.Title, day.DayNumber, node.Type, node.Status)
		}
	}
	return fmt.Sprintf("This trip has %d day(s) and is currently %q.", len(current.Days), current.Status)
}
