package api

import "github.com/tripforge/itineraryd/pkg/model"

// createItineraryResponse is returned by POST /itineraries. The Planner
// agent runs asynchronously after this response is sent; clients follow up
// over the agent.<id> WebSocket topic or the status polling endpoint.
type createItineraryResponse struct {
	Itinerary           *model.Itinerary `json:"itinerary"`
	ExecutionID         string           `json:"executionId"`
	EstimatedCompletion string           `json:"estimatedCompletion"`
	Status              string           `json:"status"`
	Stages              []string         `json:"stages"`
}

// itinerarySummary is one entry of GET /itineraries.
type itinerarySummary struct {
	ItineraryID string        `json:"itineraryId"`
	Summary     string        `json:"summary"`
	Status      model.Status  `json:"status"`
	Days        int           `json:"days"`
	UpdatedAt   int64         `json:"updatedAt"`
}

// proposeResponse is returned by POST /itineraries/{id}/propose.
type proposeResponse struct {
	Proposed       *model.Itinerary `json:"proposed"`
	Diff           *model.Diff      `json:"diff"`
	PreviewVersion int              `json:"previewVersion"`
}

// applyResponse is returned by POST /itineraries/{id}/apply and the undo and
// rollback endpoints' underlying operation.
type applyResponse struct {
	ToVersion int         `json:"toVersion"`
	Diff      *model.Diff `json:"diff"`
}

// lockNodeResponse is returned by PUT /itineraries/{id}/nodes/{nodeId}/lock.
type lockNodeResponse struct {
	Success bool   `json:"success"`
	NodeID  string `json:"nodeId"`
	Locked  bool   `json:"locked"`
}

// bookResponse is returned by POST /book.
type bookResponse struct {
	BookingRef string `json:"bookingRef"`
	Locked     bool   `json:"locked"`
}

// agentStatusResponse is returned by GET /agents/{itineraryId}/status, the
// polling fallback to the agent.<id> WebSocket topic (spec §6.2).
type agentStatusResponse struct {
	ItineraryID string                                  `json:"itineraryId"`
	Agents      map[model.AgentKind]*model.AgentRunStatus `json:"agents"`
}
