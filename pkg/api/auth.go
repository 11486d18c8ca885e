package api

import (
	echo "github.com/labstack/echo/v5"
)

// AnonymousUser is the owner id assigned to requests with no forwarded
// identity, matching model.AnonymousOwner's guest-authored convention.
const AnonymousUser = "anonymous"

// extractOwnerID resolves the authenticated user from oauth2-proxy-style
// forwarded headers. Priority: X-Forwarded-User > X-Forwarded-Email >
// AnonymousUser, so itineraries created without an auth layer in front
// still get a stable owner id.
func extractOwnerID(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	return AnonymousUser
}
