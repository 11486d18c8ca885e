package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// agentStatusHandler handles GET /agents/{itineraryId}/status, the polling
// fallback for clients that cannot hold a WebSocket open (spec §6.2).
func (s *Server) agentStatusHandler(c *echo.Context) error {
	itineraryID := c.Param("itineraryId")
	it, err := s.engine.Get(c.Request().Context(), itineraryID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, &agentStatusResponse{ItineraryID: itineraryID, Agents: it.Agents})
}
