// Package model defines the normalized itinerary document schema: the
// authoritative shape every boundary (HTTP, AI output, store) validates
// against before accepting a document into the system.
package model

import "fmt"

// Status is the derived lifecycle state of an itinerary.
type Status string

const (
	StatusPlanning   Status = "planning"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// AgentKind identifies a class of autonomous producer.
type AgentKind string

const (
	AgentKindPlanner    AgentKind = "planner"
	AgentKindEnrichment AgentKind = "enrichment"
)

// AgentRunStatus is the last-known snapshot of one agent kind's most recent
// run against an itinerary. It backs the polling fallback endpoint
// (GET /agents/{itineraryId}/status) described in spec §6.2.
type AgentRunStatus struct {
	Kind       AgentKind `json:"kind"`
	Status     RunStatus `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message,omitempty"`
	LastRunAt  int64     `json:"lastRunAt,omitempty"`
	LastError  string    `json:"lastError,omitempty"`
	ExecutionID string   `json:"executionId,omitempty"`
}

// RunStatus is the lifecycle of a single agent run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Settings holds the per-itinerary change-application policy defaults.
type Settings struct {
	AutoApply     bool   `json:"autoApply"`
	DefaultScope  Scope  `json:"defaultScope"`
	RespectLocks  bool   `json:"respectLocks"`
}

// Scope selects whether a ChangeSet applies trip-wide or to a single day.
type Scope string

const (
	ScopeTrip Scope = "trip"
	ScopeDay  Scope = "day"
)

// Itinerary is the root entity: a versioned, structured trip plan.
type Itinerary struct {
	ItineraryID string               `json:"itineraryId"`
	Version     int                  `json:"version"`
	OwnerID     string               `json:"ownerId"`
	CreatedAt   int64                `json:"createdAt"`
	UpdatedAt   int64                `json:"updatedAt"`
	Summary     string               `json:"summary"`
	Currency    string               `json:"currency"`
	Themes      []string             `json:"themes"`
	Days        []*Day               `json:"days"`
	Settings    Settings             `json:"settings"`
	Agents      map[AgentKind]*AgentRunStatus `json:"agents"`
	Status      Status               `json:"status"`
}

// AnonymousOwner is the sentinel ownerId for guest-authored itineraries.
const AnonymousOwner = "anonymous"

// NewItinerary constructs an empty itinerary at version 1, status planning.
func NewItinerary(itineraryID, ownerID string, now int64) *Itinerary {
	if ownerID == "" {
		ownerID = AnonymousOwner
	}
	return &Itinerary{
		ItineraryID: itineraryID,
		Version:     1,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Themes:      []string{},
		Days:        []*Day{},
		Settings: Settings{
			AutoApply:    false,
			DefaultScope: ScopeTrip,
			RespectLocks: true,
		},
		Agents: map[AgentKind]*AgentRunStatus{},
		Status: StatusPlanning,
	}
}

// FindNode locates a node by id across all days. Returns the node, the day
// it lives on, and whether it was found.
func (it *Itinerary) FindNode(id string) (*Node, *Day, bool) {
	for _, d := range it.Days {
		for _, n := range d.Nodes {
			if n.ID == id {
				return n, d, true
			}
		}
	}
	return nil, nil, false
}

// FindDay returns the day with the given 1-based dayNumber.
func (it *Itinerary) FindDay(dayNumber int) (*Day, bool) {
	for _, d := range it.Days {
		if d.DayNumber == dayNumber {
			return d, true
		}
	}
	return nil, false
}

// Validate enforces the structural invariants in spec §3.1-§3.3: version
// floor, day numbering, node-id uniqueness, edge closure, and per-node
// structural sanity. It is called on construction from untrusted input
// (HTTP bodies, AI-generated documents, store reads).
func (it *Itinerary) Validate() error {
	if it.Version < 1 {
		return fmt.Errorf("%w: version must be >= 1, got %d", ErrValidation, it.Version)
	}
	if it.Status != StatusPlanning && len(it.Days) == 0 {
		return fmt.Errorf("%w: days must be non-empty for status %q", ErrValidation, it.Status)
	}

	seenDay := map[int]bool{}
	seenNode := map[string]bool{}
	for i, d := range it.Days {
		if d.DayNumber != i+1 {
			return fmt.Errorf("%w: day numbers must be 1-based contiguous, day at index %d has dayNumber %d", ErrValidation, i, d.DayNumber)
		}
		if seenDay[d.DayNumber] {
			return fmt.Errorf("%w: duplicate dayNumber %d", ErrValidation, d.DayNumber)
		}
		seenDay[d.DayNumber] = true

		nodeIDs := map[string]bool{}
		for _, n := range d.Nodes {
			if n.ID == "" {
				return fmt.Errorf("%w: node missing id on day %d", ErrValidation, d.DayNumber)
			}
			if seenNode[n.ID] {
				return fmt.Errorf("%w: duplicate node id %q", ErrValidation, n.ID)
			}
			seenNode[n.ID] = true
			nodeIDs[n.ID] = true
			if err := n.Validate(); err != nil {
				return err
			}
		}
		for _, e := range d.Edges {
			if !nodeIDs[e.From] || !nodeIDs[e.To] {
				return fmt.Errorf("%w: edge %s->%s references a node not present on day %d", ErrValidation, e.From, e.To, d.DayNumber)
			}
		}
	}
	return nil
}

// Clone returns a deep copy so callers (propose, undo snapshots) can mutate
// freely without aliasing the stored document.
func (it *Itinerary) Clone() *Itinerary {
	cp := *it
	cp.Themes = append([]string(nil), it.Themes...)
	cp.Days = make([]*Day, len(it.Days))
	for i, d := range it.Days {
		cp.Days[i] = d.Clone()
	}
	cp.Agents = make(map[AgentKind]*AgentRunStatus, len(it.Agents))
	for k, v := range it.Agents {
		vv := *v
		cp.Agents[k] = &vv
	}
	return &cp
}
