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

	"github.com/tripforge/itineraryd/pkg/agent/prompt"
	"github.com/tripforge/itineraryd/pkg/engine"
	"github.com/tripforge/itineraryd/pkg/model"
	"github.com/tripforge/itineraryd/pkg/orchestrator"
)

type stubEngine struct {
	getFn    func(ctx context.Context, id string) (*model.Itinerary, error)
	proposeFn func(ctx context.Context, id string, cs *model.ChangeSet) (*engine.ProposeResult, error)
	applyFn  func(ctx context.Context, id string, cs *model.ChangeSet) (*engine.ApplyResult, error)
	undoFn   func(ctx context.Context, id string, toVersion *int) (*engine.ApplyResult, error)
}

func (s *stubEngine) Get(ctx context.Context, id string) (*model.Itinerary, error) {
	return s.getFn(ctx, id)
}
func (s *stubEngine) Propose(ctx context.Context, id string, cs *model.ChangeSet) (*engine.ProposeResult, error) {
	return s.proposeFn(ctx, id, cs)
}
func (s *stubEngine) Apply(ctx context.Context, id string, cs *model.ChangeSet) (*engine.ApplyResult, error) {
	return s.applyFn(ctx, id, cs)
}
func (s *stubEngine) Undo(ctx context.Context, id string, toVersion *int) (*engine.ApplyResult, error) {
	return s.undoFn(ctx, id, toVersion)
}

type stubStore struct {
	saveFn          func(ctx context.Context, it *model.Itinerary) error
	deleteFn        func(ctx context.Context, id string) error
	listFn          func(ctx context.Context, owner string) ([]*model.Itinerary, error)
	getFn           func(ctx context.Context, id string) (*model.Itinerary, error)
	listRevisionsFn func(ctx context.Context, id string) ([]*model.Revision, error)
	lockFn          func(ctx context.Context, id string) (unlock func())
}

func (s *stubStore) Get(ctx context.Context, id string) (*model.Itinerary, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, model.ErrNotFound
}
func (s *stubStore) Save(ctx context.Context, it *model.Itinerary) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, it)
	}
	return nil
}
func (s *stubStore) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}
func (s *stubStore) List(ctx context.Context, owner string) ([]*model.Itinerary, error) {
	if s.listFn != nil {
		return s.listFn(ctx, owner)
	}
	return nil, nil
}
func (s *stubStore) ListRevisions(ctx context.Context, id string) ([]*model.Revision, error) {
	if s.listRevisionsFn != nil {
		return s.listRevisionsFn(ctx, id)
	}
	return nil, nil
}
func (s *stubStore) Lock(ctx context.Context, id string) (unlock func()) {
	if s.lockFn != nil {
		return s.lockFn(ctx, id)
	}
	return func() {}
}

type stubPlanner struct {
	generateFn func(ctx context.Context, req prompt.InitialGenerationRequest) (*model.Itinerary, error)
}

func (p *stubPlanner) GenerateInitial(ctx context.Context, req prompt.InitialGenerationRequest) (*model.Itinerary, error) {
	return p.generateFn(ctx, req)
}

type stubOrchestrator struct {
	routeFn func(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error)
}

func (o *stubOrchestrator) Route(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error) {
	return o.routeFn(ctx, req)
}

func newTestServer(t *testing.T, eng Engine, st Store) (*Server, *echo.Echo) {
	t.Helper()
	e := echo.New()
	s := &Server{echo: e, engine: eng, store: st, runRegistry: orchestrator.NewRunRegistry()}
	return s, e
}

func TestCreateItineraryHandlerRejectsInvalidRequest(t *testing.T) {
	st := &stubStore{}
	s, e := newTestServer(t, &stubEngine{}, st)

	body := `{"destination":"","startDate":"2026-09-01","endDate":"2026-09-05","party":{"adults":2}}`
	req := httptest.NewRequest(http.MethodPost, "/itineraries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.createItineraryHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateItineraryHandlerPersistsPlaceholderAndAccepts(t *testing.T) {
	var saved *model.Itinerary
	st := &stubStore{saveFn: func(_ context.Context, it *model.Itinerary) error {
		saved = it
		return nil
	}}
	s, e := newTestServer(t, &stubEngine{}, st)
	s.planner = nil // no planner wired: background generation is skipped

	body := `{"destination":"Lisbon","startDate":"2026-09-01","endDate":"2026-09-05","party":{"adults":2}}`
	req := httptest.NewRequest(http.MethodPost, "/itineraries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.createItineraryHandler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, saved)
	assert.Equal(t, model.StatusGenerating, saved.Status)
	assert.Equal(t, model.RunQueued, saved.Agents[model.AgentKindPlanner].Status)
}

func TestGetItineraryHandlerPropagatesNotFound(t *testing.T) {
	eng := &stubEngine{getFn: func(_ context.Context, _ string) (*model.Itinerary, error) {
		return nil, model.ErrNotFound
	}}
	s, e := newTestServer(t, eng, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/itineraries/missing/json", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := s.getItineraryHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestRollbackHandlerRejectsNonIntegerVersion(t *testing.T) {
	s, e := newTestServer(t, &stubEngine{}, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/itineraries/trip-1/revisions/abc/rollback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "version")
	c.SetParamValues("trip-1", "abc")

	err := s.rollbackHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestRollbackHandlerPassesParsedVersionToUndo(t *testing.T) {
	var gotVersion *int
	eng := &stubEngine{undoFn: func(_ context.Context, _ string, toVersion *int) (*engine.ApplyResult, error) {
		gotVersion = toVersion
		return &engine.ApplyResult{ToVersion: 3}, nil
	}}
	s, e := newTestServer(t, eng, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/itineraries/trip-1/revisions/3/rollback", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "version")
	c.SetParamValues("trip-1", "3")

	err := s.rollbackHandler(c)
	require.NoError(t, err)
	require.NotNil(t, gotVersion)
	assert.Equal(t, 3, *gotVersion)
}

func TestLockNodeHandlerUpdatesLockThroughStoreDirectly(t *testing.T) {
	it := model.NewItinerary("trip-1", "anonymous", 0)
	it.Days = []*model.Day{{DayNumber: 1, Nodes: []*model.Node{{ID: "node-1"}}}}

	var savedLocked bool
	var locked bool
	st := &stubStore{
		getFn: func(_ context.Context, _ string) (*model.Itinerary, error) { return it, nil },
		saveFn: func(_ context.Context, saved *model.Itinerary) error {
			node, _, _ := saved.FindNode("node-1")
			savedLocked = node.Locked
			return nil
		},
		lockFn: func(_ context.Context, _ string) func() {
			locked = true
			return func() { locked = false }
		},
	}
	s, e := newTestServer(t, &stubEngine{}, st)

	req := httptest.NewRequest(http.MethodPut, "/itineraries/trip-1/nodes/node-1/lock", strings.NewReader(`{"locked":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "nodeId")
	c.SetParamValues("trip-1", "node-1")

	err := s.lockNodeHandler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, savedLocked)
	assert.False(t, locked, "lock must be released by the time the handler returns")
}

func TestApplyHandlerSurfacesEngineValidationError(t *testing.T) {
	eng := &stubEngine{applyFn: func(_ context.Context, _ string, _ *model.ChangeSet) (*engine.ApplyResult, error) {
		return nil, model.NewValidationError("ops", "empty scope")
	}}
	s, e := newTestServer(t, eng, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/itineraries/trip-1/apply", strings.NewReader(`{"scope":"day","day":1,"ops":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("trip-1")

	err := s.applyHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
