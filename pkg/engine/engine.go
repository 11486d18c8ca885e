// Package engine implements the Change Engine (C3): the sole writer to the
// Store, and the only place `version` advances, revisions are appended, and
// patch events are published (spec §4.3).
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tripforge/itineraryd/pkg/model"
	"github.com/tripforge/itineraryd/pkg/store"
)

// Publisher is the subset of the Event Bus (C7) the engine depends on. It is
// defined here, not imported from pkg/events, so the engine has no
// compile-time dependency on the transport-facing event package — mirroring
// the teacher's "pass an interface, not a package" wiring style
// (pkg/agent/factory.go's ControllerFactory).
type Publisher interface {
	Publish(topic string, event any)
}

// PatchEvent is published to the itinerary.<id> topic after every durable
// apply or undo (spec §4.7).
type PatchEvent struct {
	Type        string      `json:"type"` // "itinerary_updated"
	ItineraryID string      `json:"itineraryId"`
	ToVersion   int         `json:"toVersion"`
	Diff        *model.Diff `json:"diff"`
}

// ItineraryTopic returns the pub/sub topic for an itinerary's patch stream.
func ItineraryTopic(itineraryID string) string { return "itinerary." + itineraryID }

// Engine is the Change Engine. It owns the sole write path to Store and is
// safe for concurrent use — per-itinerary exclusivity is delegated to
// Store.Lock (spec §5).
type Engine struct {
	store store.Store
	bus   Publisher
	now   func() int64
}

// New constructs an Engine. bus may be nil, in which case patch events are
// not published (useful for tests that only assert on return values).
func New(st store.Store, bus Publisher) *Engine {
	return &Engine{store: st, bus: bus, now: nowMillis}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// ProposeResult is the return value of Propose.
type ProposeResult struct {
	Proposed      *model.Itinerary `json:"proposed"`
	Diff          *model.Diff      `json:"diff"`
	PreviewVersion int             `json:"previewVersion"`
}

// Get returns the current itinerary document unlocked, matching spec §5's
// "reads take no lock or a shared lock". Used by the orchestrator to build
// chat responses and by read-only API handlers.
func (e *Engine) Get(ctx context.Context, itineraryID string) (*model.Itinerary, error) {
	return e.store.Get(ctx, itineraryID)
}

// Propose is a pure computation: load current state, apply ops in memory,
// return the hypothetical result and a diff. No persistence, no version
// bump, no event emission (spec §4.3).
func (e *Engine) Propose(ctx context.Context, itineraryID string, cs *model.ChangeSet) (*ProposeResult, error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	current, err := e.store.Get(ctx, itineraryID)
	if err != nil {
		return nil, err
	}

	proposed, diff, err := applyChangeSet(current, cs, e.now())
	if err != nil {
		return nil, err
	}
	diff.ToVersion = current.Version + 1
	proposed.Version = diff.ToVersion

	return &ProposeResult{Proposed: proposed, Diff: diff, PreviewVersion: diff.ToVersion}, nil
}

// ApplyResult is the return value of Apply and Undo.
type ApplyResult struct {
	ToVersion int         `json:"toVersion"`
	Diff      *model.Diff `json:"diff"`
}

// Apply is transactional: under the per-itinerary exclusive section, it
// loads, evaluates ops, persists the new version plus a revision, and
// publishes a patch event (spec §4.3 steps 1-7).
func (e *Engine) Apply(ctx context.Context, itineraryID string, cs *model.ChangeSet) (*ApplyResult, error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}

	unlock := e.store.Lock(ctx, itineraryID)
	defer unlock()

	current, err := e.store.Get(ctx, itineraryID)
	if err != nil {
		return nil, err
	}

	if len(cs.Ops) == 0 {
		// L3: an empty ChangeSet is a no-op that does not bump the version.
		return &ApplyResult{ToVersion: current.Version, Diff: model.NewDiff(current.Version)}, nil
	}

	next, diff, err := applyChangeSet(current, cs, e.now())
	if err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = e.now()
	diff.ToVersion = next.Version

	revision := &model.Revision{
		ItineraryID: itineraryID,
		Version:     next.Version,
		Timestamp:   e.now(),
		Description: describeChangeSet(cs),
		Author:      authorOf(cs),
		Diff:        diff,
		Snapshot:    next.Clone(),
	}

	if err := e.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}
	if err := e.store.AppendRevision(ctx, revision); err != nil {
		return nil, fmt.Errorf("failed to append revision: %w", err)
	}

	e.publish(itineraryID, next.Version, diff)

	return &ApplyResult{ToVersion: next.Version, Diff: diff}, nil
}

// Undo restores the snapshot at toVersion as a new forward-moving version
// (spec §4.3). If toVersion is nil, undoes the most recently applied
// version (currentVersion - 1).
func (e *Engine) Undo(ctx context.Context, itineraryID string, toVersion *int) (*ApplyResult, error) {
	unlock := e.store.Lock(ctx, itineraryID)
	defer unlock()

	current, err := e.store.Get(ctx, itineraryID)
	if err != nil {
		return nil, err
	}

	target := current.Version - 1
	if toVersion != nil {
		target = *toVersion
	}

	targetRevision, err := e.store.GetRevision(ctx, itineraryID, target)
	if err != nil {
		return nil, fmt.Errorf("%w: no snapshot at version %d", model.ErrNotFound, target)
	}

	restored := targetRevision.Snapshot.Clone()
	newVersion := current.Version + 1
	restored.Version = newVersion
	restored.UpdatedAt = e.now()
	restored.ItineraryID = itineraryID

	diff := diffItineraries(current, restored)
	diff.ToVersion = newVersion

	revision := &model.Revision{
		ItineraryID: itineraryID,
		Version:     newVersion,
		Timestamp:   e.now(),
		Description: fmt.Sprintf("Undo to version %d", target),
		Author:      model.OriginSystem,
		Diff:        diff,
		Snapshot:    restored.Clone(),
	}

	if err := e.store.Save(ctx, restored); err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}
	if err := e.store.AppendRevision(ctx, revision); err != nil {
		return nil, fmt.Errorf("failed to append revision: %w", err)
	}

	e.publish(itineraryID, newVersion, diff)

	return &ApplyResult{ToVersion: newVersion, Diff: diff}, nil
}

// ReplaceDocument overwrites the entire itinerary document with doc as a new
// version, under the same lock/save/revision/publish discipline as Apply.
// This is how the Planner agent's initial-generation mode lands its result
// (spec §4.5): the AI client produces a full document rather than a set of
// incremental ops, so there is nothing for applyChangeSet's op-by-op
// machinery to do. doc's ItineraryID, OwnerID, CreatedAt and Version are
// overwritten from the current record; callers only need to populate the
// itinerary's content (Days, Summary, Currency, Themes, Settings).
func (e *Engine) ReplaceDocument(ctx context.Context, itineraryID string, doc *model.Itinerary, author model.Originator) (*ApplyResult, error) {
	unlock := e.store.Lock(ctx, itineraryID)
	defer unlock()

	current, err := e.store.Get(ctx, itineraryID)
	if err != nil {
		return nil, err
	}

	next := doc.Clone()
	next.ItineraryID = current.ItineraryID
	next.OwnerID = current.OwnerID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	next.UpdatedAt = e.now()
	for k, v := range current.Agents {
		if _, ok := next.Agents[k]; !ok {
			next.Agents[k] = v
		}
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}

	diff := diffItineraries(current, next)
	diff.ToVersion = next.Version

	revision := &model.Revision{
		ItineraryID: itineraryID,
		Version:     next.Version,
		Timestamp:   e.now(),
		Description: "Generated itinerary",
		Author:      author,
		Diff:        diff,
		Snapshot:    next.Clone(),
	}

	if err := e.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save itinerary: %w", err)
	}
	if err := e.store.AppendRevision(ctx, revision); err != nil {
		return nil, fmt.Errorf("failed to append revision: %w", err)
	}

	e.publish(itineraryID, next.Version, diff)

	return &ApplyResult{ToVersion: next.Version, Diff: diff}, nil
}

func (e *Engine) publish(itineraryID string, toVersion int, diff *model.Diff) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(ItineraryTopic(itineraryID), PatchEvent{
		Type:        "itinerary_updated",
		ItineraryID: itineraryID,
		ToVersion:   toVersion,
		Diff:        diff,
	})
}

func authorOf(cs *model.ChangeSet) model.Originator {
	if cs.Author != "" {
		return cs.Author
	}
	return model.OriginUser
}

func describeChangeSet(cs *model.ChangeSet) string {
	return fmt.Sprintf("Applied %d operation(s)", len(cs.Ops))
}
