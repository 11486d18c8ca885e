// Package agent implements the autonomous producers (C5) that propose
// itinerary changes: the Planner (initial generation and modification) and
// the Enrichment agent. Agents never touch the Store directly; the only way
// an agent can influence an itinerary is by submitting a ChangeSet to the
// Change Engine (spec §4.5).
package agent

import (
	"context"
	"time"

	"github.com/tripforge/itineraryd/pkg/model"
)

// Status is the lifecycle of a single agent run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Event is published to the agent.<id> topic at every lifecycle transition
// and progress checkpoint (spec §4.5).
type Event struct {
	AgentID     string          `json:"agentId"`
	Kind        model.AgentKind `json:"kind"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	Message     string          `json:"message,omitempty"`
	Step        string          `json:"step,omitempty"`
	Timestamp   int64           `json:"timestamp"`
	ItineraryID string          `json:"itineraryId"`
}

// Publisher is the subset of the Event Bus an agent run needs. Defined here
// rather than imported from pkg/events so this package carries no
// compile-time dependency on the transport layer.
type Publisher interface {
	Publish(topic string, event any)
}

// AgentTopic returns the pub/sub topic an agent run's progress is published
// on (spec §4.7).
func AgentTopic(itineraryID string) string { return "agent." + itineraryID }

// Agent produces a ChangeSet for an itinerary. Run must not mutate the
// Store; it returns the ChangeSet for the caller (for example the
// orchestrator) to submit through the Change Engine.
type Agent interface {
	Kind() model.AgentKind
	Run(ctx context.Context, in Input) (*model.ChangeSet, error)
}

// Input carries everything an agent needs to compute a ChangeSet without
// touching the Store itself.
type Input struct {
	ItineraryID string
	Current     *model.Itinerary // nil for initial generation
	Request     string           // natural-language request, empty for enrichment
}

// Runner wraps an Agent with the common queued→running→(succeeded|failed)
// lifecycle and progress publishing, mirroring the teacher's
// BaseAgent-delegates-to-Controller split: Runner owns status bookkeeping
// and event emission, the wrapped Agent owns the actual generation logic.
type Runner struct {
	agent Agent
	bus   Publisher
	now   func() int64
}

// NewRunner constructs a Runner around agent. bus may be nil, in which case
// progress events are simply not published (useful in tests).
func NewRunner(a Agent, bus Publisher) *Runner {
	return &Runner{agent: a, bus: bus, now: func() int64 { return time.Now().UnixMilli() }}
}

// Run executes the wrapped agent, publishing lifecycle and progress events
// around it. A context cancellation before or during Run is reported as a
// terminal failed event with no ChangeSet returned, matching spec §5's
// cancellation contract.
func (r *Runner) Run(ctx context.Context, agentID string, in Input) (*model.ChangeSet, error) {
	kind := r.agent.Kind()
	r.emit(agentID, kind, in.ItineraryID, StatusQueued, 0, "queued")

	select {
	case <-ctx.Done():
		r.emit(agentID, kind, in.ItineraryID, StatusFailed, 0, "cancelled before start")
		return nil, ctx.Err()
	default:
	}

	r.emit(agentID, kind, in.ItineraryID, StatusRunning, 5, "starting")

	cs, err := r.agent.Run(ctx, in)
	if err != nil {
		r.emit(agentID, kind, in.ItineraryID, StatusFailed, 100, err.Error())
		return nil, err
	}

	r.emit(agentID, kind, in.ItineraryID, StatusSucceeded, 100, "done")
	return cs, nil
}

func (r *Runner) emit(agentID string, kind model.AgentKind, itineraryID string, status Status, progress int, message string) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(AgentTopic(itineraryID), Event{
		AgentID:     agentID,
		Kind:        kind,
		Status:      status,
		Progress:    progress,
		Message:     message,
		Timestamp:   r.now(),
		ItineraryID: itineraryID,
	})
}
