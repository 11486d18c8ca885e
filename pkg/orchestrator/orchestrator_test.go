package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itineraryd/pkg/agent"
	"github.com/tripforge/itineraryd/pkg/engine"
	"github.com/tripforge/itineraryd/pkg/model"
)

type stubEngine struct {
	current    *model.Itinerary
	getErr     error
	proposeRes *engine.ProposeResult
	proposeErr error
	applyRes   *engine.ApplyResult
	applyErr   error
}

func (s *stubEngine) Get(_ context.Context, _ string) (*model.Itinerary, error) {
	return s.current, s.getErr
}

func (s *stubEngine) Propose(_ context.Context, _ string, _ *model.ChangeSet) (*engine.ProposeResult, error) {
	return s.proposeRes, s.proposeErr
}

func (s *stubEngine) Apply(_ context.Context, _ string, _ *model.ChangeSet) (*engine.ApplyResult, error) {
	return s.applyRes, s.applyErr
}

type stubPlanner struct {
	cs  *model.ChangeSet
	err error
}

func (s *stubPlanner) Run(_ context.Context, _ agent.Input) (*model.ChangeSet, error) {
	return s.cs, s.err
}

func buildOrchestratorFixture() *model.Itinerary {
	return &model.Itinerary{
		ItineraryID: "it_1",
		Version:     3,
		Status:      model.StatusCompleted,
		Days: []*model.Day{
			{
				DayNumber: 1,
				Nodes: []*model.Node{
					{ID: "n_museum", Type: model.NodeAttraction, Title: "Louvre Museum", Status: model.NodePlanned},
				},
			},
		},
	}
}

func TestRouteRejectsInvalidRequest(t *testing.T) {
	o := New(&stubEngine{}, &stubPlanner{}, nil)

	resp, err := o.Route(context.Background(), ChatRequest{ItineraryID: "it_1", Text: ""})

	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, resp.Intent)
	assert.False(t, resp.Applied)
	assert.NotEmpty(t, resp.Errors)
}

func TestRoutePropagatesEngineGetError(t *testing.T) {
	o := New(&stubEngine{getErr: errors.New("not found")}, &stubPlanner{}, nil)

	_, err := o.Route(context.Background(), ChatRequest{ItineraryID: "it_1", Text: "move the museum"})

	assert.Error(t, err)
}

func TestRouteExplainDispatchesDirectlyWithoutPlanner(t *testing.T) {
	current := buildOrchestratorFixture()
	planner := &stubPlanner{err: errors.New("should not be called")}
	o := New(&stubEngine{current: current}, planner, nil)

	resp, err := o.Route(context.Background(), ChatRequest{
		ItineraryID:    "it_1",
		Text:           "why is the museum scheduled like this",
		SelectedNodeID: "n_museum",
	})

	require.NoError(t, err)
	assert.Equal(t, IntentExplain, resp.Intent)
	assert.False(t, resp.Applied)
	assert.Contains(t, resp.Message, "Louvre Museum")
}

func TestRouteNoMatchingNodeReturnsError(t *testing.T) {
	current := buildOrchestratorFixture()
	o := New(&stubEngine{current: current}, &stubPlanner{}, nil)

	resp, err := o.Route(context.Background(), ChatRequest{
		ItineraryID: "it_1",
		Text:        "delete the aquarium visit",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Errors)
	assert.False(t, resp.Applied)
}

func TestRouteAmbiguousCandidatesRequestsDisambiguation(t *testing.T) {
	current := buildOrchestratorFixture()
	current.Days[0].Nodes = append(current.Days[0].Nodes, &model.Node{
		ID: "n_museum2", Type: model.NodeAttraction, Title: "Orsay Museum", Status: model.NodePlanned,
	})
	o := New(&stubEngine{current: current}, &stubPlanner{}, nil)

	resp, err := o.Route(context.Background(), ChatRequest{
		ItineraryID: "it_1",
		Text:        "delete the museum visit",
	})

	require.NoError(t, err)
	assert.True(t, resp.NeedsDisambiguation)
	assert.Len(t, resp.Candidates, 2)
}

func TestRoutePlannerFailureReturnsMessageResponse(t *testing.T) {
	current := buildOrchestratorFixture()
	planner := &stubPlanner{err: errors.New("ai unavailable")}
	o := New(&stubEngine{current: current}, planner, nil)

	resp, err := o.Route(context.Background(), ChatRequest{
		ItineraryID:    "it_1",
		Text:           "delete this",
		SelectedNodeID: "n_museum",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Errors)
	assert.False(t, resp.Applied)
}

func TestRouteAutoApplyAppliesChangeSet(t *testing.T) {
	current := buildOrchestratorFixture()
	cs := &model.ChangeSet{Scope: model.ScopeTrip, Ops: []model.ChangeOperation{{Op: model.OpDelete, ID: "n_museum"}}}
	applyRes := &engine.ApplyResult{ToVersion: 4, Diff: &model.Diff{ToVersion: 4, Warnings: []string{"heads up"}}}
	o := New(&stubEngine{current: current, applyRes: applyRes}, &stubPlanner{cs: cs}, nil)

	resp, err := o.Route(context.Background(), ChatRequest{
		ItineraryID:    "it_1",
		Text:           "delete this",
		SelectedNodeID: "n_museum",
		AutoApply:      true,
	})

	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.Equal(t, 4, resp.ToVersion)
	assert.Equal(t, []string{"heads up"}, resp.Warnings)
}

func TestRouteProposePreviewsWithoutApplying(t *testing.T) {
	current := buildOrchestratorFixture()
	cs := &model.ChangeSet{Scope: model.ScopeTrip, Ops: []model.ChangeOperation{{Op: model.OpDelete, ID: "n_museum"}}}
	proposeRes := &engine.ProposeResult{PreviewVersion: 4, Diff: &model.Diff{ToVersion: 4}}
	o := New(&stubEngine{current: current, proposeRes: proposeRes}, &stubPlanner{cs: cs}, nil)

	resp, err := o.Route(context.Background(), ChatRequest{
		ItineraryID:    "it_1",
		Text:           "delete this",
		SelectedNodeID: "n_museum",
		AutoApply:      false,
	})

	require.NoError(t, err)
	assert.False(t, resp.Applied)
	assert.NotNil(t, resp.Diff)
}

func TestRouteApplyErrorIsSurfacedNotReturnedAsGoError(t *testing.T) {
	current := buildOrchestratorFixture()
	cs := &model.ChangeSet{Scope: model.ScopeTrip, Ops: []model.ChangeOperation{{Op: model.OpDelete, ID: "n_museum"}}}
	o := New(&stubEngine{current: current, applyErr: errors.New("locked node")}, &stubPlanner{cs: cs}, nil)

	resp, err := o.Route(context.Background(), ChatRequest{
		ItineraryID:    "it_1",
		Text:           "delete this",
		SelectedNodeID: "n_museum",
		AutoApply:      true,
	})

	require.NoError(t, err)
	assert.False(t, resp.Applied)
	assert.NotEmpty(t, resp.Errors)
}
