package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tripforge/itineraryd/pkg/model"
)

func buildResolveFixture() *model.Itinerary {
	return &model.Itinerary{
		ItineraryID: "it_1",
		Version:     1,
		Days: []*model.Day{
			{
				DayNumber: 1,
				Nodes: []*model.Node{
					{ID: "n_museum", Type: model.NodeAttraction, Title: "Louvre Museum"},
					{ID: "n_dinner", Type: model.NodeMeal, Title: "Dinner at Le Comptoir"},
				},
			},
			{
				DayNumber: 2,
				Nodes: []*model.Node{
					{ID: "n_tower", Type: model.NodeAttraction, Title: "Eiffel Tower"},
				},
			},
		},
	}
}

func TestResolveCandidatesShortCircuitsOnSelectedNodeID(t *testing.T) {
	it := buildResolveFixture()
	req := ChatRequest{SelectedNodeID: "n_tower", Text: "move this earlier"}

	candidates := resolveCandidates(it, req)

	assert.Len(t, candidates, 1)
	assert.Equal(t, "n_tower", candidates[0].ID)
	assert.Equal(t, 1.0, candidates[0].Confidence)
	assert.Equal(t, 2, candidates[0].Day)
}

func TestResolveCandidatesUnknownSelectedNodeIDFallsBackToTextSearch(t *testing.T) {
	it := buildResolveFixture()
	req := ChatRequest{SelectedNodeID: "does-not-exist", Text: "move the museum visit"}

	candidates := resolveCandidates(it, req)

	assert.NotEmpty(t, candidates)
	assert.Equal(t, "n_museum", candidates[0].ID)
}

func TestResolveCandidatesScoresByTitleOverlap(t *testing.T) {
	it := buildResolveFixture()
	req := ChatRequest{Text: "cancel the museum visit"}

	candidates := resolveCandidates(it, req)

	assert.NotEmpty(t, candidates)
	assert.Equal(t, "n_museum", candidates[0].ID)
}

func TestResolveCandidatesFiltersByDayScope(t *testing.T) {
	it := buildResolveFixture()
	req := ChatRequest{Scope: model.ScopeDay, Day: 1, Text: "remove the tower"}

	candidates := resolveCandidates(it, req)

	for _, c := range candidates {
		assert.Equal(t, 1, c.Day)
	}
}

func TestResolveCandidatesReturnsNoneBelowThreshold(t *testing.T) {
	it := buildResolveFixture()
	req := ChatRequest{Text: "what's the weather like tomorrow"}

	candidates := resolveCandidates(it, req)

	assert.Empty(t, candidates)
}

func TestNeedsDisambiguationFalseForSingleCandidate(t *testing.T) {
	assert.False(t, needsDisambiguation([]NodeCandidate{{Confidence: 0.8}}))
}

func TestNeedsDisambiguationTrueWhenScoresAreClose(t *testing.T) {
	candidates := []NodeCandidate{{Confidence: 0.6}, {Confidence: 0.55}}
	assert.True(t, needsDisambiguation(candidates))
}

func TestNeedsDisambiguationFalseWhenBestIsClearlyAhead(t *testing.T) {
	candidates := []NodeCandidate{{Confidence: 0.9}, {Confidence: 0.3}}
	assert.False(t, needsDisambiguation(candidates))
}

func TestTitleScoreIgnoresShortWords(t *testing.T) {
	score := titleScore("remove the dinner reservation", "Dinner at Le Comptoir")
	assert.Greater(t, score, 0.0)
}

func TestTitleScoreZeroForNoOverlap(t *testing.T) {
	score := titleScore("add a spa afternoon", "Eiffel Tower")
	assert.Equal(t, 0.0, score)
}
