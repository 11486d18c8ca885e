package engine

import "github.com/tripforge/itineraryd/pkg/model"

type nodeLocation struct {
	node *model.Node
	day  int
}

func indexNodes(it *model.Itinerary) map[string]nodeLocation {
	out := make(map[string]nodeLocation)
	for _, d := range it.Days {
		for _, n := range d.Nodes {
			out[n.ID] = nodeLocation{node: n, day: d.DayNumber}
		}
	}
	return out
}

// diffItineraries compares two full snapshots and reports what changed
// between them. Undo has no ChangeSet to derive a diff from directly (it
// restores a whole document), so it falls back to this structural
// comparison (spec §3.7, scenario S4).
func diffItineraries(before, after *model.Itinerary) *model.Diff {
	diff := model.NewDiff(after.Version)

	beforeNodes := indexNodes(before)
	afterNodes := indexNodes(after)

	for id, b := range beforeNodes {
		if _, ok := afterNodes[id]; !ok {
			diff.Removed = append(diff.Removed, model.NodeRef{NodeID: id, Day: b.day})
		}
	}
	for id, a := range afterNodes {
		b, ok := beforeNodes[id]
		if !ok {
			diff.Added = append(diff.Added, model.NodeRef{NodeID: id, Day: a.day})
			continue
		}
		fields := changedFields(b.node, a.node)
		if b.day != a.day {
			fields = append(fields, "day")
		}
		if len(fields) > 0 {
			diff.Updated = append(diff.Updated, model.UpdatedRef{
				NodeRef:       model.NodeRef{NodeID: id, Day: a.day},
				ChangedFields: fields,
			})
		}
	}
	return diff
}

func changedFields(before, after *model.Node) []string {
	var fields []string
	if before.Title != after.Title {
		fields = append(fields, "title")
	}
	if before.Status != after.Status {
		fields = append(fields, "status")
	}
	if before.Locked != after.Locked {
		fields = append(fields, "locked")
	}
	if before.BookingRef != after.BookingRef {
		fields = append(fields, "bookingRef")
	}
	if before.Timing != after.Timing {
		fields = append(fields, "timing")
	}
	if !stringSlicesEqual(before.Labels, after.Labels) {
		fields = append(fields, "labels")
	}
	return fields
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
