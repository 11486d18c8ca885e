package api

import (
	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler upgrades the HTTP connection to WebSocket and hands it to the
// ConnectionManager, which pumps event bus topics at the client until it
// disconnects (spec §6.2).
func (s *Server) wsHandler(c *echo.Context) error {
	if s.connManager == nil {
		return echo.NewHTTPError(503, "WebSocket not available")
	}

	// Origin enforcement for the WebSocket upgrade is left to the reverse
	// proxy in front of itineraryd (cors() in middleware.go only governs plain HTTP
	// requests; the coder/websocket upgrade path has no equivalent hook
	// wired here).
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	s.connManager.HandleConnection(c.Request().Context(), conn)
	return nil
}
