package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/tripforge/itineraryd/pkg/orchestrator"
)

// chatRouteHandler handles POST /chat/route, the single entry point for
// natural-language itinerary edits and questions (spec §4.6, §6.1).
func (s *Server) chatRouteHandler(c *echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	orchReq := orchestrator.ChatRequest{
		ItineraryID:    req.ItineraryID,
		Scope:          req.Scope,
		Day:            req.Day,
		SelectedNodeID: req.SelectedNodeID,
		Text:           req.Text,
		AutoApply:      req.AutoApply,
		UserID:         extractOwnerID(c),
	}

	resp, err := s.orchestrator.Route(c.Request().Context(), orchReq)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, resp)
}
