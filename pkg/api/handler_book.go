package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/tripforge/itineraryd/pkg/model"
)

// bookHandler handles POST /book: the mock booking flow (spec §3.5). It
// sets the node's bookingRef and adds the Booked label through the regular
// update op, so booking participates in the same revision history as any
// other edit. It deliberately does not lock the node: booking and locking
// are independent concerns, a booked node can still be moved or re-timed by
// later edits.
func (s *Server) bookHandler(c *echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	it, err := s.engine.Get(c.Request().Context(), req.ItineraryID)
	if err != nil {
		return mapDomainError(err)
	}
	node, day, ok := it.FindNode(req.NodeID)
	if !ok {
		return mapDomainError(model.ErrNotFound)
	}

	labels := append(append([]string(nil), node.Labels...), model.BookedLabel)
	cs := &model.ChangeSet{
		Scope: model.ScopeDay,
		Day:   day.DayNumber,
		Ops: []model.ChangeOperation{{
			Op: model.OpUpdate,
			ID: req.NodeID,
			Patch: &model.NodePatch{
				BookingRef: &req.BookingRef,
				Labels:     labels,
			},
		}},
		Preferences: model.DefaultPreferences(),
		Author:      model.OriginUser,
	}

	if _, err := s.engine.Apply(c.Request().Context(), req.ItineraryID, cs); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, &bookResponse{BookingRef: req.BookingRef, Locked: node.Locked})
}
