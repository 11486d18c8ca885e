package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itineraryd/pkg/agent/prompt"
	"github.com/tripforge/itineraryd/pkg/ai"
	"github.com/tripforge/itineraryd/pkg/model"
)

type stubAIClient struct {
	text string
	err  error
}

func (s stubAIClient) GenerateStructured(_ context.Context, _ ai.Request, v any) (*ai.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := json.Unmarshal([]byte(s.text), v); err != nil {
		return nil, err
	}
	return &ai.Response{Text: s.text, Provider: "stub"}, nil
}

func TestPlannerGenerateInitialBuildsDocument(t *testing.T) {
	doc := `{
		"summary": "Three days in Barcelona",
		"currency": "EUR",
		"themes": ["culture"],
		"days": [
			{
				"dayNumber": 1,
				"date": "2025-10-04",
				"location": "Barcelona",
				"nodes": [
					{"id": "n1", "type": "attraction", "title": "Sagrada Familia"},
					{"id": "n2", "type": "meal", "title": "Lunch"}
				],
				"edges": [{"from": "n1", "to": "n2"}]
			}
		]
	}`
	p := NewPlannerAgent(stubAIClient{text: doc})

	it, err := p.GenerateInitial(context.Background(), prompt.InitialGenerationRequest{
		Destination: "Barcelona", StartDate: "2025-10-04", EndDate: "2025-10-06", Adults: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Three days in Barcelona", it.Summary)
	require.Len(t, it.Days, 1)
	require.Len(t, it.Days[0].Nodes, 2)
	assert.Equal(t, model.NodePlanned, it.Days[0].Nodes[0].Status)
	assert.Equal(t, model.OriginAgent, it.Days[0].Nodes[0].UpdatedBy)
}

func TestPlannerGenerateInitialNormalizesClockTimeTiming(t *testing.T) {
	doc := `{
		"summary": "One day in Porto",
		"currency": "EUR",
		"days": [
			{
				"dayNumber": 1,
				"date": "2025-10-04",
				"nodes": [
					{"id": "n1", "type": "attraction", "title": "Livraria Lello",
					 "timing": {"startTime": "09:30", "endTime": "11:00", "durationMin": 90}}
				]
			}
		]
	}`
	p := NewPlannerAgent(stubAIClient{text: doc})

	it, err := p.GenerateInitial(context.Background(), prompt.InitialGenerationRequest{
		Destination: "Porto", StartDate: "2025-10-04", EndDate: "2025-10-04", Adults: 1,
	})
	require.NoError(t, err)
	require.Len(t, it.Days[0].Nodes, 1)
	node := it.Days[0].Nodes[0]
	start, err := model.NormalizeClockTime("09:30", "2025-10-04")
	require.NoError(t, err)
	end, err := model.NormalizeClockTime("11:00", "2025-10-04")
	require.NoError(t, err)
	assert.Equal(t, start, node.Timing.StartTime)
	assert.Equal(t, end, node.Timing.EndTime)
}

func TestPlannerGenerateInitialRejectsUnparsableTiming(t *testing.T) {
	doc := `{
		"summary": "Bad timing",
		"currency": "EUR",
		"days": [
			{
				"dayNumber": 1,
				"date": "2025-10-04",
				"nodes": [
					{"id": "n1", "type": "attraction", "title": "Somewhere",
					 "timing": {"startTime": "not-a-time"}}
				]
			}
		]
	}`
	p := NewPlannerAgent(stubAIClient{text: doc})
	_, err := p.GenerateInitial(context.Background(), prompt.InitialGenerationRequest{Destination: "Porto"})
	require.Error(t, err)
}

func TestPlannerGenerateInitialPropagatesAIFailure(t *testing.T) {
	p := NewPlannerAgent(stubAIClient{err: assertErr("provider unavailable")})
	_, err := p.GenerateInitial(context.Background(), prompt.InitialGenerationRequest{Destination: "Rome"})
	require.Error(t, err)
}

func TestPlannerModifyReturnsValidatedChangeSet(t *testing.T) {
	cs := `{"scope": "trip", "ops": [{"op": "update", "id": "n1", "patch": {"title": "New title"}}]}`
	p := NewPlannerAgent(stubAIClient{text: cs})

	current := buildValidItineraryForPlanner()
	result, err := p.Run(context.Background(), Input{ItineraryID: "trip-1", Current: current, Request: "rename the first stop"})
	require.NoError(t, err)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, model.OriginAgent, result.Author)
}

func TestPlannerModifyRejectsOpsTargetingLockedNodes(t *testing.T) {
	cs := `{"scope": "trip", "ops": [{"op": "delete", "id": "n1"}]}`
	p := NewPlannerAgent(stubAIClient{text: cs})

	current := buildValidItineraryForPlanner()
	current.Days[0].Nodes[0].Locked = true

	_, err := p.Run(context.Background(), Input{ItineraryID: "trip-1", Current: current, Request: "remove the first stop"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestPlannerModifyRejectsMalformedChangeSet(t *testing.T) {
	p := NewPlannerAgent(stubAIClient{text: `{"scope": "bogus", "ops": []}`})
	current := buildValidItineraryForPlanner()

	_, err := p.Run(context.Background(), Input{ItineraryID: "trip-1", Current: current, Request: "do something"})
	require.Error(t, err)
}

func TestPlannerRunWithoutCurrentIsRejected(t *testing.T) {
	p := NewPlannerAgent(stubAIClient{})
	_, err := p.Run(context.Background(), Input{ItineraryID: "trip-1"})
	require.Error(t, err)
}

func buildValidItineraryForPlanner() *model.Itinerary {
	it := model.NewItinerary("trip-1", "user-1", 1000)
	it.Status = model.StatusCompleted
	it.Days = []*model.Day{
		{
			DayNumber: 1,
			Date:      "2025-10-04",
			Nodes: []*model.Node{
				{ID: "n1", Type: model.NodeAttraction, Status: model.NodePlanned},
				{ID: "n2", Type: model.NodeMeal, Status: model.NodePlanned},
			},
		},
	}
	return it
}

type assertErrType string

func (e assertErrType) Error() string { return string(e) }

func assertErr(msg string) error { return assertErrType(msg) }
