package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itineraryd/pkg/engine"
	"github.com/tripforge/itineraryd/pkg/model"
)

func buildBookFixture() *model.Itinerary {
	it := model.NewItinerary("trip-1", "anonymous", 0)
	it.Days = []*model.Day{{
		DayNumber: 1,
		Nodes:     []*model.Node{{ID: "node-1", Title: "Museum visit", Labels: []string{"Outdoor"}}},
	}}
	return it
}

func TestBookHandlerAppliesBookingRefAndBookedLabel(t *testing.T) {
	it := buildBookFixture()

	var appliedCS *model.ChangeSet
	eng := &stubEngine{
		getFn: func(_ context.Context, _ string) (*model.Itinerary, error) { return it, nil },
		applyFn: func(_ context.Context, _ string, cs *model.ChangeSet) (*engine.ApplyResult, error) {
			appliedCS = cs
			return &engine.ApplyResult{ToVersion: 2}, nil
		},
	}
	s, e := newTestServer(t, eng, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(`{"itineraryId":"trip-1","nodeId":"node-1","bookingRef":"CONF-123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.bookHandler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, appliedCS)
	require.Len(t, appliedCS.Ops, 1)
	op := appliedCS.Ops[0]
	assert.Equal(t, model.OpUpdate, op.Op)
	assert.Equal(t, "node-1", op.ID)
	require.NotNil(t, op.Patch.BookingRef)
	assert.Equal(t, "CONF-123", *op.Patch.BookingRef)
	assert.Contains(t, op.Patch.Labels, model.BookedLabel)
	assert.Contains(t, op.Patch.Labels, "Outdoor")
}

func TestBookHandlerUnknownNodeReturnsNotFound(t *testing.T) {
	it := buildBookFixture()
	eng := &stubEngine{getFn: func(_ context.Context, _ string) (*model.Itinerary, error) { return it, nil }}
	s, e := newTestServer(t, eng, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(`{"itineraryId":"trip-1","nodeId":"missing","bookingRef":"CONF-123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.bookHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}
