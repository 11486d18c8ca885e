package model

import "fmt"

// NodeType enumerates the kinds of itinerary entries.
type NodeType string

const (
	NodeAttraction   NodeType = "attraction"
	NodeMeal         NodeType = "meal"
	NodeAccommodation NodeType = "accommodation"
	NodeTransport    NodeType = "transport"
)

func (t NodeType) valid() bool {
	switch t {
	case NodeAttraction, NodeMeal, NodeAccommodation, NodeTransport:
		return true
	}
	return false
}

// NodeStatus is the lifecycle state of a single node.
type NodeStatus string

const (
	NodePlanned    NodeStatus = "planned"
	NodeInProgress NodeStatus = "in_progress"
	NodeCompleted  NodeStatus = "completed"
	NodeSkipped    NodeStatus = "skipped"
	NodeCancelled  NodeStatus = "cancelled"
)

// Originator identifies who authored the most recent mutation to a node.
type Originator string

const (
	OriginUser   Originator = "user"
	OriginAgent  Originator = "agent"
	OriginSystem Originator = "system"
)

// Location names a place, optionally with coordinates.
type Location struct {
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

func (l Location) validate() error {
	if l.Lat != nil && (*l.Lat < -90 || *l.Lat > 90) {
		return fmt.Errorf("%w: lat %f out of range [-90,90]", ErrValidation, *l.Lat)
	}
	if l.Lng != nil && (*l.Lng < -180 || *l.Lng > 180) {
		return fmt.Errorf("%w: lng %f out of range [-180,180]", ErrValidation, *l.Lng)
	}
	return nil
}

// Timing carries a node's scheduled window in epoch millis. StartTime/EndTime
// are 0 when not yet scheduled.
type Timing struct {
	StartTime   int64 `json:"startTime,omitempty"`
	EndTime     int64 `json:"endTime,omitempty"`
	DurationMin int   `json:"durationMin,omitempty"`
}

// Cost is a per-node monetary estimate.
type Cost struct {
	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`
	PerUnit  string  `json:"perUnit,omitempty"` // e.g. "person", "group"
}

// Details carries the descriptive sub-fields of a node. Extra holds
// provider-specific fields the schema doesn't enumerate, mirroring the
// teacher corpus's typed-model-plus-escape-hatch-map pattern.
type Details struct {
	Category string         `json:"category,omitempty"`
	Rating   float64        `json:"rating,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Tips carries structured guidance surfaced to the traveler, populated
// incrementally by the Enrichment agent.
type Tips struct {
	BestTime []string `json:"bestTime,omitempty"`
	Travel   []string `json:"travel,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Links carries outbound references for a node.
type Links struct {
	BookingURL string `json:"bookingUrl,omitempty"`
	Website    string `json:"website,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Node is one entry in a day's plan: a place, meal, stay, or transit leg.
type Node struct {
	ID         string     `json:"id"`
	Type       NodeType   `json:"type"`
	Title      string     `json:"title"`
	Location   Location   `json:"location"`
	Timing     Timing     `json:"timing"`
	Cost       Cost       `json:"cost"`
	Details    Details    `json:"details"`
	Labels     []string   `json:"labels,omitempty"`
	Tips       Tips       `json:"tips"`
	Links      Links      `json:"links"`
	Locked     bool       `json:"locked"`
	BookingRef string     `json:"bookingRef,omitempty"`
	Status     NodeStatus `json:"status"`
	UpdatedBy  Originator `json:"updatedBy"`
	UpdatedAt  int64      `json:"updatedAt"`
}

// BookedLabel is the label attached to a node when it is booked (spec §3.5).
const BookedLabel = "Booked"

// IsBooked reports whether the node carries a booking reference.
func (n *Node) IsBooked() bool {
	return n.BookingRef != ""
}

// HasLabel reports whether label is present on the node.
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// AddLabel appends label if not already present.
func (n *Node) AddLabel(label string) {
	if !n.HasLabel(label) {
		n.Labels = append(n.Labels, label)
	}
}

// transitions enumerates the allowed NodeStatus edges (spec §3.3).
var transitions = map[NodeStatus]map[NodeStatus]bool{
	NodePlanned:    {NodeInProgress: true, NodeSkipped: true, NodeCancelled: true},
	NodeInProgress: {NodeCompleted: true, NodeSkipped: true, NodeCancelled: true},
	NodeCompleted:  {NodePlanned: true, NodeInProgress: true},
	NodeSkipped:    {NodePlanned: true, NodeInProgress: true},
	NodeCancelled:  {},
}

// CanTransitionTo reports whether moving from n's current status to target
// is a legal transition per the restricted graph in spec §3.3. A no-op
// transition (same status) is always legal.
func (n *Node) CanTransitionTo(target NodeStatus) bool {
	if n.Status == target {
		return true
	}
	allowed, ok := transitions[n.Status]
	return ok && allowed[target]
}

// Validate enforces per-node structural sanity: known type, known status,
// coordinate range.
func (n *Node) Validate() error {
	if !n.Type.valid() {
		return fmt.Errorf("%w: unknown node type %q", ErrValidation, n.Type)
	}
	switch n.Status {
	case NodePlanned, NodeInProgress, NodeCompleted, NodeSkipped, NodeCancelled, "":
	default:
		return fmt.Errorf("%w: unknown node status %q", ErrValidation, n.Status)
	}
	if err := n.Location.validate(); err != nil {
		return err
	}
	return nil
}

// Clone deep-copies a node.
func (n *Node) Clone() *Node {
	cp := *n
	cp.Labels = append([]string(nil), n.Labels...)
	cp.Details.Tags = append([]string(nil), n.Details.Tags...)
	if n.Details.Extra != nil {
		cp.Details.Extra = make(map[string]any, len(n.Details.Extra))
		for k, v := range n.Details.Extra {
			cp.Details.Extra[k] = v
		}
	}
	cp.Tips.BestTime = append([]string(nil), n.Tips.BestTime...)
	cp.Tips.Travel = append([]string(nil), n.Tips.Travel...)
	cp.Tips.Warnings = append([]string(nil), n.Tips.Warnings...)
	if n.Location.Lat != nil {
		lat := *n.Location.Lat
		cp.Location.Lat = &lat
	}
	if n.Location.Lng != nil {
		lng := *n.Location.Lng
		cp.Location.Lng = &lng
	}
	return &cp
}

// Touch stamps the node as mutated by the given originator at the given
// epoch-millis timestamp (spec §3.3, P7 authorship audit).
func (n *Node) Touch(by Originator, now int64) {
	n.UpdatedBy = by
	n.UpdatedAt = now
}
