package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tripforge/itineraryd/pkg/model"
)

// indexedOp pairs a ChangeOperation with its resolved author and a skip flag
// set by the userFirst tie-break before ops are applied.
type indexedOp struct {
	op     model.ChangeOperation
	author model.Originator
	skip   bool
}

// applyChangeSet applies cs against a clone of current and returns the
// resulting document plus a diff (spec §4.3 step 2). It never mutates
// current. On any referential-integrity failure it returns an error and the
// caller discards the partial clone — Apply and Propose never persist a
// half-applied changeset.
func applyChangeSet(current *model.Itinerary, cs *model.ChangeSet, now int64) (*model.Itinerary, *model.Diff, error) {
	it := current.Clone()
	diff := model.NewDiff(0)
	defaultAuthor := authorOf(cs)

	var nonEdge, edgeOps []indexedOp
	for _, op := range cs.Ops {
		author := op.Author
		if author == "" {
			author = defaultAuthor
		}
		item := indexedOp{op: op, author: author}
		if op.Op == model.OpUpdateEdge {
			edgeOps = append(edgeOps, item)
		} else {
			nonEdge = append(nonEdge, item)
		}
	}

	applyTieBreak(nonEdge, diff, cs.Preferences.UserFirst)

	// Edges are applied in a second pass so update_edge ops can reference
	// nodes introduced by insert ops earlier in the same changeset.
	for i := range nonEdge {
		item := &nonEdge[i]
		if item.skip {
			continue
		}
		var err error
		switch item.op.Op {
		case model.OpInsert:
			err = applyInsert(it, item.op, item.author, now, diff)
		case model.OpDelete:
			applyDelete(it, item.op, cs.Preferences.RespectLocks, diff)
		case model.OpMove:
			err = applyMove(it, item.op, item.author, now, cs.Preferences.RespectLocks, diff)
		case model.OpUpdate:
			err = applyUpdate(it, item.op, item.author, now, cs.Preferences.RespectLocks, diff)
		case model.OpReplace:
			err = applyReplace(it, item.op, item.author, now, cs.Preferences.RespectLocks, diff)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	for _, item := range edgeOps {
		if err := applyUpdateEdge(it, item.op, diff); err != nil {
			return nil, nil, err
		}
	}

	return it, diff, nil
}

// applyTieBreak implements the userFirst preference (spec §4.3): when both a
// user-authored and a non-user-authored op in the same changeset target the
// same node id, userFirst decides which one yields. userFirst=true (the
// default) skips the non-user op, keeping the user's edit; userFirst=false
// flips that and skips the user op instead, letting the agent's edit stand.
// Either way the loser is recorded as a diff warning rather than silently
// dropped.
func applyTieBreak(ops []indexedOp, diff *model.Diff, userFirst bool) {
	groups := map[string][]int{}
	for i, item := range ops {
		if item.op.ID == "" {
			continue
		}
		groups[item.op.ID] = append(groups[item.op.ID], i)
	}
	for id, idxs := range groups {
		if len(idxs) < 2 {
			continue
		}
		hasUser, hasOther := false, false
		for _, i := range idxs {
			if ops[i].author == model.OriginUser {
				hasUser = true
			} else {
				hasOther = true
			}
		}
		if !hasUser || !hasOther {
			continue
		}
		skipUser := !userFirst
		reason := "a user edit"
		if skipUser {
			reason = "an agent edit"
		}
		for _, i := range idxs {
			if (ops[i].author == model.OriginUser) != skipUser {
				continue
			}
			ops[i].skip = true
			diff.Warnings = append(diff.Warnings, fmt.Sprintf(
				"skipped %s on %q: superseded by %s to the same node", ops[i].op.Op, id, reason))
		}
	}
}

func findNodeAnywhere(it *model.Itinerary, id string) (*model.Day, int, bool) {
	for _, d := range it.Days {
		if idx := d.NodeIndex(id); idx >= 0 {
			return d, idx, true
		}
	}
	return nil, -1, false
}

// parseStartSentinel recognizes the "day:<n>:start" form of After/NewAfter,
// used to insert or move a node to the head of a day rather than after an
// existing sibling.
func parseStartSentinel(ref string) (int, bool) {
	if !strings.HasPrefix(ref, "day:") || !strings.HasSuffix(ref, ":start") {
		return 0, false
	}
	middle := strings.TrimSuffix(strings.TrimPrefix(ref, "day:"), ":start")
	n, err := strconv.Atoi(middle)
	if err != nil {
		return 0, false
	}
	return n, true
}

func removeEdgesReferencing(edges []model.Edge, nodeID string) []model.Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.From != nodeID && e.To != nodeID {
			out = append(out, e)
		}
	}
	return out
}

func applyInsert(it *model.Itinerary, op model.ChangeOperation, author model.Originator, now int64, diff *model.Diff) error {
	if op.Node.ID == "" {
		return fmt.Errorf("%w: insert requires a non-empty node id", model.ErrValidation)
	}
	if _, _, exists := findNodeAnywhere(it, op.Node.ID); exists {
		return fmt.Errorf("%w: node id %q already exists", model.ErrValidation, op.Node.ID)
	}

	var day *model.Day
	insertIdx := 0
	if dayNumber, ok := parseStartSentinel(op.After); ok {
		d, ok2 := it.FindDay(dayNumber)
		if !ok2 {
			return fmt.Errorf("%w: insert after %q references a day that does not exist", model.ErrValidation, op.After)
		}
		day = d
		insertIdx = 0
	} else {
		d, idx, ok2 := findNodeAnywhere(it, op.After)
		if !ok2 {
			return fmt.Errorf("%w: insert after %q references a node that does not exist", model.ErrValidation, op.After)
		}
		day = d
		insertIdx = idx + 1
	}

	node := op.Node.Clone()
	if node.Status == "" {
		node.Status = model.NodePlanned
	}
	if err := node.Validate(); err != nil {
		return err
	}
	node.Touch(author, now)

	day.Nodes = append(day.Nodes, nil)
	copy(day.Nodes[insertIdx+1:], day.Nodes[insertIdx:])
	day.Nodes[insertIdx] = node

	diff.Added = append(diff.Added, model.NodeRef{NodeID: node.ID, Day: day.DayNumber})
	return nil
}

func applyDelete(it *model.Itinerary, op model.ChangeOperation, respectLocks bool, diff *model.Diff) {
	day, idx, ok := findNodeAnywhere(it, op.ID)
	if !ok {
		// L4: deleting a node that no longer exists is a no-op, not an error.
		diff.Warnings = append(diff.Warnings, fmt.Sprintf("delete target %q not found, skipped", op.ID))
		return
	}
	node := day.Nodes[idx]
	if node.Locked && respectLocks {
		diff.Warnings = append(diff.Warnings, fmt.Sprintf("delete on locked node %q skipped", op.ID))
		return
	}

	dayNumber := day.DayNumber
	day.Nodes = append(day.Nodes[:idx], day.Nodes[idx+1:]...)
	day.Edges = removeEdgesReferencing(day.Edges, op.ID)
	diff.Removed = append(diff.Removed, model.NodeRef{NodeID: op.ID, Day: dayNumber})
}

func applyMove(it *model.Itinerary, op model.ChangeOperation, author model.Originator, now int64, respectLocks bool, diff *model.Diff) error {
	day, idx, ok := findNodeAnywhere(it, op.ID)
	if !ok {
		return fmt.Errorf("%w: move target %q not found", model.ErrValidation, op.ID)
	}
	node := day.Nodes[idx]
	if node.Locked && respectLocks {
		diff.Warnings = append(diff.Warnings, fmt.Sprintf("move on locked node %q skipped", op.ID))
		return nil
	}

	day.Nodes = append(day.Nodes[:idx], day.Nodes[idx+1:]...)
	day.Edges = removeEdgesReferencing(day.Edges, op.ID)

	destDay := day
	insertIdx := len(day.Nodes)
	if op.NewAfter != "" {
		if dayNumber, ok2 := parseStartSentinel(op.NewAfter); ok2 {
			d, ok3 := it.FindDay(dayNumber)
			if !ok3 {
				return fmt.Errorf("%w: move newAfter %q references a day that does not exist", model.ErrValidation, op.NewAfter)
			}
			destDay = d
			insertIdx = 0
		} else {
			d, idx2, ok3 := findNodeAnywhere(it, op.NewAfter)
			if !ok3 {
				return fmt.Errorf("%w: move newAfter %q references a node that does not exist", model.ErrValidation, op.NewAfter)
			}
			destDay = d
			insertIdx = idx2 + 1
		}
	}

	destDay.Nodes = append(destDay.Nodes, nil)
	copy(destDay.Nodes[insertIdx+1:], destDay.Nodes[insertIdx:])
	destDay.Nodes[insertIdx] = node

	node.Touch(author, now)
	fields := []string{"position"}
	if destDay.DayNumber != day.DayNumber {
		fields = append(fields, "day")
	}
	diff.Updated = append(diff.Updated, model.UpdatedRef{
		NodeRef:       model.NodeRef{NodeID: node.ID, Day: destDay.DayNumber},
		ChangedFields: fields,
	})
	return nil
}

func applyUpdate(it *model.Itinerary, op model.ChangeOperation, author model.Originator, now int64, respectLocks bool, diff *model.Diff) error {
	day, idx, ok := findNodeAnywhere(it, op.ID)
	if !ok {
		return fmt.Errorf("%w: update target %q not found", model.ErrValidation, op.ID)
	}
	node := day.Nodes[idx]
	if node.Locked && respectLocks {
		diff.Warnings = append(diff.Warnings, fmt.Sprintf("update on locked node %q skipped", op.ID))
		return nil
	}

	patch := op.Patch
	var changed []string
	if patch.Title != nil {
		node.Title = *patch.Title
		changed = append(changed, "title")
	}
	if patch.Labels != nil {
		node.Labels = patch.Labels
		changed = append(changed, "labels")
	}
	if patch.Details != nil {
		node.Details = *patch.Details
		changed = append(changed, "details")
	}
	if patch.Locked != nil {
		node.Locked = *patch.Locked
		changed = append(changed, "locked")
	}
	if patch.BookingRef != nil {
		node.BookingRef = *patch.BookingRef
		if *patch.BookingRef != "" {
			node.AddLabel(model.BookedLabel)
		}
		changed = append(changed, "bookingRef")
	}
	if patch.Status != nil {
		if !node.CanTransitionTo(*patch.Status) {
			return fmt.Errorf("%w: illegal status transition %s -> %s for node %q", model.ErrValidation, node.Status, *patch.Status, node.ID)
		}
		node.Status = *patch.Status
		changed = append(changed, "status")
	}
	if patch.Timing != nil {
		node.Timing = *patch.Timing
		changed = append(changed, "timing")
	}
	if patch.Tips != nil {
		node.Tips = *patch.Tips
		changed = append(changed, "tips")
	}
	if len(changed) == 0 {
		return nil
	}
	if err := node.Validate(); err != nil {
		return err
	}

	node.Touch(author, now)
	diff.Updated = append(diff.Updated, model.UpdatedRef{
		NodeRef:       model.NodeRef{NodeID: node.ID, Day: day.DayNumber},
		ChangedFields: changed,
	})
	return nil
}

func applyReplace(it *model.Itinerary, op model.ChangeOperation, author model.Originator, now int64, respectLocks bool, diff *model.Diff) error {
	day, idx, ok := findNodeAnywhere(it, op.ID)
	if !ok {
		return fmt.Errorf("%w: replace target %q not found", model.ErrValidation, op.ID)
	}
	existing := day.Nodes[idx]
	if existing.Locked && respectLocks {
		diff.Warnings = append(diff.Warnings, fmt.Sprintf("replace on locked node %q skipped", op.ID))
		return nil
	}
	if err := op.Node.Validate(); err != nil {
		return err
	}

	replacement := op.Node.Clone()
	replacement.ID = op.ID
	replacement.Touch(author, now)
	day.Nodes[idx] = replacement

	diff.Updated = append(diff.Updated, model.UpdatedRef{
		NodeRef:       model.NodeRef{NodeID: op.ID, Day: day.DayNumber},
		ChangedFields: []string{"*"},
	})
	return nil
}

func applyUpdateEdge(it *model.Itinerary, op model.ChangeOperation, diff *model.Diff) error {
	dayFrom, _, okFrom := findNodeAnywhere(it, op.EdgeFrom)
	dayTo, _, okTo := findNodeAnywhere(it, op.EdgeTo)
	if !okFrom || !okTo {
		return fmt.Errorf("%w: update_edge %s->%s references a node that does not exist", model.ErrValidation, op.EdgeFrom, op.EdgeTo)
	}
	if dayFrom.DayNumber != dayTo.DayNumber {
		return fmt.Errorf("%w: update_edge %s->%s spans two different days", model.ErrValidation, op.EdgeFrom, op.EdgeTo)
	}

	if edge, ok := dayFrom.FindEdge(op.EdgeFrom, op.EdgeTo); ok {
		edge.TransitInfo = op.TransitInfo
	} else {
		dayFrom.Edges = append(dayFrom.Edges, model.Edge{From: op.EdgeFrom, To: op.EdgeTo, TransitInfo: op.TransitInfo})
	}

	diff.Updated = append(diff.Updated, model.UpdatedRef{
		NodeRef:       model.NodeRef{NodeID: op.EdgeFrom, Day: dayFrom.DayNumber},
		ChangedFields: []string{"edge"},
	})
	return nil
}
