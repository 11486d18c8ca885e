package agent

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/tripforge/itineraryd/pkg/model"
)

// kmPerDegree and assumedSpeedKmh drive the straight-line transit estimate
// used when no provider-supplied duration exists (spec §4.5). Tests pin
// these two named constants.
const (
	kmPerDegree     = 111.0
	assumedSpeedKmh = 40.0
)

// earlyMorningHour and lateEveningHour bound the window outside which a
// meal node is flagged as possibly unavailable. Hours are UTC hours of
// Timing.StartTime.
const (
	earlyMorningHour = 7
	lateEveningHour  = 22
)

// shortTransitGapMin is the threshold below which consecutive nodes are
// annotated with a tight-timing travel tip.
const shortTransitGapMin = 20

// EnrichmentAgent runs over a completed itinerary and emits update /
// update_edge ops annotating warnings and transit estimates, without
// touching any node's status or any locked node (spec §4.5).
type EnrichmentAgent struct{}

// NewEnrichmentAgent constructs an EnrichmentAgent. It has no dependencies:
// all of its logic is pure computation over the document already in hand.
func NewEnrichmentAgent() *EnrichmentAgent { return &EnrichmentAgent{} }

func (a *EnrichmentAgent) Kind() model.AgentKind { return model.AgentKindEnrichment }

// Run inspects in.Current and returns a ChangeSet of annotation ops. It
// never returns an error for "nothing to enrich"; an empty ChangeSet is a
// valid, no-op result (spec §4.3's L3). Each day's nodes and edges are
// independent, so the per-day scans fan out over an errgroup and are
// reassembled in day order once all of them finish.
func (a *EnrichmentAgent) Run(ctx context.Context, in Input) (*model.ChangeSet, error) {
	if in.Current == nil {
		return nil, fmt.Errorf("enrichment: requires the current itinerary")
	}

	days := in.Current.Days
	perDay := make([][]model.ChangeOperation, len(days))

	g, _ := errgroup.WithContext(ctx)
	for i, day := range days {
		i, day := i, day
		g.Go(func() error {
			perDay[i] = enrichDay(day)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cs := &model.ChangeSet{
		Scope:       model.ScopeTrip,
		Author:      model.OriginAgent,
		Preferences: model.Preferences{UserFirst: true, AutoApply: true, RespectLocks: true},
	}
	for _, ops := range perDay {
		cs.Ops = append(cs.Ops, ops...)
	}

	return cs, nil
}

// enrichDay scans a single day's nodes and edges and returns the annotation
// ops it produces, in node then edge order.
func enrichDay(day *model.Day) []model.ChangeOperation {
	var ops []model.ChangeOperation

	for i, node := range day.Nodes {
		if node.Locked {
			continue
		}
		patch := &model.NodePatch{}
		tips := node.Tips
		changed := false

		if warning, ok := openingHoursWarning(node); ok && !containsString(tips.Warnings, warning) {
			tips.Warnings = append(append([]string(nil), tips.Warnings...), warning)
			changed = true
		}

		if i > 0 {
			if tip, ok := tightTransitTip(day, i); ok && !containsString(tips.Travel, tip) {
				tips.Travel = append(append([]string(nil), tips.Travel...), tip)
				changed = true
			}
		}

		if changed {
			patch.Tips = &tips
			ops = append(ops, model.ChangeOperation{Op: model.OpUpdate, ID: node.ID, Patch: patch})
		}
	}

	for _, edge := range day.Edges {
		if edge.TransitInfo != nil && edge.TransitInfo.DurationMin > 0 {
			continue
		}
		estimate, ok := estimateTransit(day, edge)
		if !ok {
			continue
		}
		ops = append(ops, model.ChangeOperation{
			Op:          model.OpUpdateEdge,
			EdgeFrom:    edge.From,
			EdgeTo:      edge.To,
			TransitInfo: &estimate,
		})
	}

	return ops
}

// openingHoursWarning flags meal nodes scheduled outside typical service
// hours. Timing.StartTime is epoch millis; the hour-of-day is derived in
// UTC, matching how the rest of the document stores instants.
func openingHoursWarning(n *model.Node) (string, bool) {
	if n.Type != model.NodeMeal || n.Timing.StartTime == 0 {
		return "", false
	}
	hour := (n.Timing.StartTime / 3_600_000) % 24
	if hour < earlyMorningHour {
		return "restaurant may not be open this early", true
	}
	if hour >= lateEveningHour {
		return "restaurant may be closed this late", true
	}
	return "", false
}

// tightTransitTip annotates a node when the gap to the previous node on the
// same day is short enough that delays would be disruptive.
func tightTransitTip(day *model.Day, nodeIdx int) (string, bool) {
	prev := day.Nodes[nodeIdx-1]
	curr := day.Nodes[nodeIdx]
	if prev.Timing.EndTime == 0 || curr.Timing.StartTime == 0 {
		return "", false
	}
	gapMin := int((curr.Timing.StartTime - prev.Timing.EndTime) / 60_000)
	if gapMin > 0 && gapMin < shortTransitGapMin {
		return fmt.Sprintf("only %d minutes between activities", gapMin), true
	}
	return "", false
}

// estimateTransit computes a straight-line duration estimate for edge when
// both endpoints carry coordinates, using kmPerDegree and assumedSpeedKmh.
func estimateTransit(day *model.Day, edge model.Edge) (model.TransitInfo, bool) {
	fromIdx := day.NodeIndex(edge.From)
	toIdx := day.NodeIndex(edge.To)
	if fromIdx < 0 || toIdx < 0 {
		return model.TransitInfo{}, false
	}
	from := day.Nodes[fromIdx].Location
	to := day.Nodes[toIdx].Location
	if from.Lat == nil || from.Lng == nil || to.Lat == nil || to.Lng == nil {
		return model.TransitInfo{}, false
	}

	dLat := (*to.Lat - *from.Lat) * kmPerDegree
	dLng := (*to.Lng - *from.Lng) * kmPerDegree
	distanceKm := math.Sqrt(dLat*dLat + dLng*dLng)
	durationMin := int(math.Round(distanceKm / assumedSpeedKmh * 60))

	return model.TransitInfo{Mode: "estimated", DurationMin: durationMin, DistanceKm: distanceKm, Estimated: true}, true
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
