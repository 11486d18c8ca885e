package orchestrator

import (
	"sort"
	"strings"

	"github.com/tripforge/itineraryd/pkg/model"
)

// disambiguationThreshold is the minimum fuzzy-match score a candidate must
// clear to be offered at all.
const disambiguationThreshold = 0.35

// disambiguationTolerance bounds how close the second-best candidate's
// score must be to the best one for both to be considered ambiguous,
// rather than confidently picking the top match.
const disambiguationTolerance = 0.15

// resolveCandidates scores every node in current against text (and, when
// scope is day-scoped, restricts to that day), returning candidates sorted
// by descending confidence. selectedNodeID, when it names a node in current,
// resolves unambiguously to that node alone (spec §4.6); an unknown
// selectedNodeID falls back to the text search.
func resolveCandidates(current *model.Itinerary, req ChatRequest) []NodeCandidate {
	if req.SelectedNodeID != "" {
		if node, day, ok := current.FindNode(req.SelectedNodeID); ok {
			return []NodeCandidate{toCandidate(node, day.DayNumber, 1.0)}
		}
	}

	needle := strings.ToLower(req.Text)
	var candidates []NodeCandidate
	for _, day := range current.Days {
		if req.Scope == model.ScopeDay && day.DayNumber != req.Day {
			continue
		}
		for _, node := range day.Nodes {
			score := titleScore(needle, node.Title)
			if score < disambiguationThreshold {
				continue
			}
			candidates = append(candidates, toCandidate(node, day.DayNumber, score))
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Confidence > candidates[j].Confidence })
	return candidates
}

// needsDisambiguation reports whether candidates contains two or more
// entries whose confidence is within disambiguationTolerance of the best
// score (spec §4.6 step 2).
func needsDisambiguation(candidates []NodeCandidate) bool {
	if len(candidates) < 2 {
		return false
	}
	best := candidates[0].Confidence
	return best-candidates[1].Confidence <= disambiguationTolerance
}

func toCandidate(n *model.Node, day int, confidence float64) NodeCandidate {
	return NodeCandidate{
		ID:         n.ID,
		Title:      n.Title,
		Day:        day,
		Type:       n.Type,
		Location:   n.Location,
		Confidence: confidence,
	}
}

// titleScore is a token-overlap fuzzy score in [0,1]: the fraction of the
// node title's words that also appear in the request text. Simple by
// design; the AI-backed path handles requests this can't score well.
func titleScore(needle, title string) float64 {
	titleWords := strings.Fields(strings.ToLower(title))
	if len(titleWords) == 0 {
		return 0
	}
	matched := 0
	for _, w := range titleWords {
		if len(w) < 3 {
			continue
		}
		if strings.Contains(needle, w) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return float64(matched) / float64(len(titleWords))
}
