package model

import "fmt"

// OpVerb tags a ChangeOperation variant (spec §3.4).
type OpVerb string

const (
	OpInsert      OpVerb = "insert"
	OpDelete      OpVerb = "delete"
	OpMove        OpVerb = "move"
	OpUpdate      OpVerb = "update"
	OpReplace     OpVerb = "replace"
	OpUpdateEdge  OpVerb = "update_edge"
)

// NodePatch is a partial node update. Nil fields are left untouched; Labels
// and Details.Tags, when non-nil, replace the corresponding slice wholesale
// (no element-wise merge).
type NodePatch struct {
	Title      *string     `json:"title,omitempty"`
	Labels     []string    `json:"labels,omitempty"`
	Details    *Details    `json:"details,omitempty"`
	Locked     *bool       `json:"locked,omitempty"`
	BookingRef *string     `json:"bookingRef,omitempty"`
	Status     *NodeStatus `json:"status,omitempty"`
	Timing     *Timing     `json:"timing,omitempty"`
	Tips       *Tips       `json:"tips,omitempty"`
}

// ChangeOperation is one mutation within a ChangeSet, tagged by Op.
type ChangeOperation struct {
	Op OpVerb `json:"op"`

	// Author overrides the owning ChangeSet's author for this one op. Left
	// empty, the op inherits ChangeSet.Author. Set by callers that merge ops
	// from more than one originator into a single apply call, enabling the
	// userFirst tie-break (spec §4.3).
	Author Originator `json:"-"`

	// insert
	After string `json:"after,omitempty"`
	Node  *Node  `json:"node,omitempty"`

	// delete, move, update, replace target an existing node
	ID string `json:"id,omitempty"`

	// move
	NewAfter string `json:"newAfter,omitempty"`

	// update
	Patch *NodePatch `json:"patch,omitempty"`

	// update_edge
	EdgeFrom    string       `json:"edgeFrom,omitempty"`
	EdgeTo      string       `json:"edgeTo,omitempty"`
	TransitInfo *TransitInfo `json:"transitInfo,omitempty"`
}

// Preferences governs how a ChangeSet is applied (spec §3.4).
type Preferences struct {
	UserFirst    bool `json:"userFirst"`
	AutoApply    bool `json:"autoApply"`
	RespectLocks bool `json:"respectLocks"`
}

// DefaultPreferences matches spec §3.4's stated defaults.
func DefaultPreferences() Preferences {
	return Preferences{UserFirst: true, AutoApply: false, RespectLocks: true}
}

// ChangeSet is an atomic bundle of operations requested against an
// itinerary, authored by a user or an agent.
type ChangeSet struct {
	Scope       Scope             `json:"scope"`
	Day         int               `json:"day,omitempty"`
	Ops         []ChangeOperation `json:"ops"`
	Preferences Preferences       `json:"preferences"`
	Author      Originator        `json:"-"` // derived, never client-supplied
}

// Validate checks structural well-formedness (not node existence, which
// requires itinerary context and is checked by the engine).
func (cs *ChangeSet) Validate() error {
	if cs.Scope != ScopeTrip && cs.Scope != ScopeDay {
		return fmt.Errorf("%w: scope must be %q or %q", ErrValidation, ScopeTrip, ScopeDay)
	}
	if cs.Scope == ScopeDay && cs.Day <= 0 {
		return fmt.Errorf("%w: day is required and must be >= 1 when scope=day", ErrValidation)
	}
	for i, op := range cs.Ops {
		if err := op.validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (op *ChangeOperation) validate(index int) error {
	switch op.Op {
	case OpInsert:
		if op.After == "" || op.Node == nil {
			return fmt.Errorf("%w: ops[%d] insert requires after and node", ErrValidation, index)
		}
	case OpDelete:
		if op.ID == "" {
			return fmt.Errorf("%w: ops[%d] delete requires id", ErrValidation, index)
		}
	case OpMove:
		if op.ID == "" {
			return fmt.Errorf("%w: ops[%d] move requires id", ErrValidation, index)
		}
	case OpUpdate:
		if op.ID == "" || op.Patch == nil {
			return fmt.Errorf("%w: ops[%d] update requires id and patch", ErrValidation, index)
		}
	case OpReplace:
		if op.ID == "" || op.Node == nil {
			return fmt.Errorf("%w: ops[%d] replace requires id and node", ErrValidation, index)
		}
	case OpUpdateEdge:
		if op.EdgeFrom == "" || op.EdgeTo == "" {
			return fmt.Errorf("%w: ops[%d] update_edge requires edgeFrom and edgeTo", ErrValidation, index)
		}
	default:
		return fmt.Errorf("%w: ops[%d] unknown op verb %q", ErrValidation, index, op.Op)
	}
	return nil
}

// IsDestructiveOrMutating reports whether op targets a node with a verb the
// lock gate must consider (spec §3.5, §4.3): delete, move, update, replace.
func (op *ChangeOperation) IsDestructiveOrMutating() bool {
	switch op.Op {
	case OpDelete, OpMove, OpUpdate, OpReplace:
		return true
	}
	return false
}

// NodeRef identifies a node within a diff or revision.
type NodeRef struct {
	NodeID string `json:"nodeId"`
	Day    int    `json:"day"`
}

// UpdatedRef names a node and the fields that changed on it.
type UpdatedRef struct {
	NodeRef
	ChangedFields []string `json:"changedFields"`
}

// Diff summarizes the effect of an apply or undo (spec §3.7).
type Diff struct {
	Added     []NodeRef    `json:"added"`
	Removed   []NodeRef    `json:"removed"`
	Updated   []UpdatedRef `json:"updated"`
	ToVersion int          `json:"toVersion"`
	Warnings  []string     `json:"warnings,omitempty"`
}

// NewDiff returns an empty Diff targeting toVersion.
func NewDiff(toVersion int) *Diff {
	return &Diff{Added: []NodeRef{}, Removed: []NodeRef{}, Updated: []UpdatedRef{}, ToVersion: toVersion}
}
