package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itineraryd/pkg/model"
)

func lat(v float64) *float64 { return &v }

func buildEnrichableItinerary() *model.Itinerary {
	it := model.NewItinerary("trip-1", "user-1", 1000)
	it.Status = model.StatusCompleted
	it.Days = []*model.Day{
		{
			DayNumber: 1,
			Date:      "2025-10-04",
			Nodes: []*model.Node{
				{
					ID: "n1", Type: model.NodeAttraction, Status: model.NodePlanned,
					Location: model.Location{Lat: lat(41.3851), Lng: lat(2.1734)},
					Timing:   model.Timing{StartTime: 9 * 3_600_000, EndTime: 10 * 3_600_000},
				},
				{
					ID: "n2", Type: model.NodeMeal, Status: model.NodePlanned,
					Location: model.Location{Lat: lat(41.3963), Lng: lat(2.1864)},
					Timing:   model.Timing{StartTime: 10*3_600_000 + 10*60_000, EndTime: 11 * 3_600_000},
				},
			},
			Edges: []model.Edge{{From: "n1", To: "n2"}},
		},
	}
	return it
}

func TestEnrichmentAgentAnnotatesTightTransitGap(t *testing.T) {
	it := buildEnrichableItinerary()
	a := NewEnrichmentAgent()

	cs, err := a.Run(context.Background(), Input{ItineraryID: "trip-1", Current: it})
	require.NoError(t, err)

	var found bool
	for _, op := range cs.Ops {
		if op.Op == model.OpUpdate && op.ID == "n2" {
			require.NotNil(t, op.Patch.Tips)
			assert.NotEmpty(t, op.Patch.Tips.Travel)
			found = true
		}
	}
	assert.True(t, found, "expected an update op annotating the tight transit gap on n2")
}

func TestEnrichmentAgentEstimatesTransitDuration(t *testing.T) {
	it := buildEnrichableItinerary()
	a := NewEnrichmentAgent()

	cs, err := a.Run(context.Background(), Input{ItineraryID: "trip-1", Current: it})
	require.NoError(t, err)

	var found bool
	for _, op := range cs.Ops {
		if op.Op == model.OpUpdateEdge && op.EdgeFrom == "n1" && op.EdgeTo == "n2" {
			require.NotNil(t, op.TransitInfo)
			assert.True(t, op.TransitInfo.Estimated)
			assert.Greater(t, op.TransitInfo.DurationMin, 0)
			found = true
		}
	}
	assert.True(t, found, "expected an update_edge op with an estimated transit duration")
}

func TestEnrichmentAgentSkipsLockedNodes(t *testing.T) {
	it := buildEnrichableItinerary()
	it.Days[0].Nodes[1].Locked = true
	a := NewEnrichmentAgent()

	cs, err := a.Run(context.Background(), Input{ItineraryID: "trip-1", Current: it})
	require.NoError(t, err)

	for _, op := range cs.Ops {
		assert.NotEqual(t, "n2", op.ID, "locked node must not be targeted by an update op")
	}
}

func TestEnrichmentAgentFlagsEarlyMorningMeal(t *testing.T) {
	it := buildEnrichableItinerary()
	it.Days[0].Nodes[1].Timing.StartTime = 5 * 3_600_000
	a := NewEnrichmentAgent()

	cs, err := a.Run(context.Background(), Input{ItineraryID: "trip-1", Current: it})
	require.NoError(t, err)

	var found bool
	for _, op := range cs.Ops {
		if op.Op == model.OpUpdate && op.ID == "n2" {
			for _, w := range op.Patch.Tips.Warnings {
				if w != "" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected a warning on the early-morning meal node")
}

func TestEnrichmentAgentRequiresCurrentItinerary(t *testing.T) {
	a := NewEnrichmentAgent()
	_, err := a.Run(context.Background(), Input{ItineraryID: "trip-1"})
	require.Error(t, err)
}
