package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itineraryd/pkg/orchestrator"
)

func TestChatRouteHandlerRejectsMalformedBody(t *testing.T) {
	s, e := newTestServer(t, &stubEngine{}, &stubStore{})
	s.orchestrator = &stubOrchestrator{}

	req := httptest.NewRequest(http.MethodPost, "/chat/route", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.chatRouteHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestChatRouteHandlerPropagatesOrchestratorError(t *testing.T) {
	s, e := newTestServer(t, &stubEngine{}, &stubStore{})
	s.orchestrator = &stubOrchestrator{routeFn: func(_ context.Context, _ orchestrator.ChatRequest) (*orchestrator.ChatResponse, error) {
		return nil, errors.New("boom")
	}}

	req := httptest.NewRequest(http.MethodPost, "/chat/route", strings.NewReader(`{"itineraryId":"trip-1","text":"move breakfast later"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.chatRouteHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
}

func TestChatRouteHandlerForwardsOwnerIDAndReturnsResponse(t *testing.T) {
	var gotUserID string
	s, e := newTestServer(t, &stubEngine{}, &stubStore{})
	s.orchestrator = &stubOrchestrator{routeFn: func(_ context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error) {
		gotUserID = req.UserID
		return &orchestrator.ChatResponse{Intent: orchestrator.IntentExplain, Message: "done"}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/chat/route", strings.NewReader(`{"itineraryId":"trip-1","text":"why is this here"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-User", "traveler-42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.chatRouteHandler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "traveler-42", gotUserID)
	assert.Contains(t, rec.Body.String(), `"done"`)
}
