package api

import "github.com/tripforge/itineraryd/pkg/model"

// createItineraryRequest is the HTTP request body for POST /itineraries.
type createItineraryRequest = model.CreateRequest

// lockNodeRequest is the HTTP request body for PUT
// /itineraries/{id}/nodes/{nodeId}/lock.
type lockNodeRequest struct {
	Locked bool `json:"locked"`
}

// chatRequest is the HTTP request body for POST /chat/route.
type chatRequest struct {
	ItineraryID    string      `json:"itineraryId"`
	Scope          model.Scope `json:"scope"`
	Day            int         `json:"day,omitempty"`
	SelectedNodeID string      `json:"selectedNodeId,omitempty"`
	Text           string      `json:"text"`
	AutoApply      bool        `json:"autoApply"`
}

// proposeApplyRequest is the HTTP request body for both
// POST /itineraries/{id}/propose and POST /itineraries/{id}/apply.
type proposeApplyRequest struct {
	Scope       model.Scope             `json:"scope"`
	Day         int                     `json:"day,omitempty"`
	Ops         []model.ChangeOperation `json:"ops"`
	Preferences model.Preferences       `json:"preferences"`
}

// bookRequest is the HTTP request body for POST /book.
type bookRequest struct {
	ItineraryID string `json:"itineraryId"`
	NodeID      string `json:"nodeId"`
	BookingRef  string `json:"bookingRef"`
}
