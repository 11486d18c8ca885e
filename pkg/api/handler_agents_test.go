package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itineraryd/pkg/model"
)

func TestAgentStatusHandlerReturnsAgentMap(t *testing.T) {
	it := model.NewItinerary("trip-1", "anonymous", 0)
	it.Agents[model.AgentKindPlanner] = &model.AgentRunStatus{
		Kind:   model.AgentKindPlanner,
		Status: model.RunSucceeded,
	}

	eng := &stubEngine{getFn: func(_ context.Context, id string) (*model.Itinerary, error) {
		assert.Equal(t, "trip-1", id)
		return it, nil
	}}
	s, e := newTestServer(t, eng, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/agents/trip-1/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("itineraryId")
	c.SetParamValues("trip-1")

	err := s.agentStatusHandler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"planner"`)
}

func TestAgentStatusHandlerPropagatesNotFound(t *testing.T) {
	eng := &stubEngine{getFn: func(_ context.Context, _ string) (*model.Itinerary, error) {
		return nil, model.ErrNotFound
	}}
	s, e := newTestServer(t, eng, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/agents/missing/status", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("itineraryId")
	c.SetParamValues("missing")

	err := s.agentStatusHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}
