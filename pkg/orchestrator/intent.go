package orchestrator

import (
	"context"
	"regexp"
	"strings"

	"github.com/tripforge/itineraryd/pkg/ai"
)

// Intent is the chat request category spec §4.6 dispatches on.
type Intent string

const (
	IntentMoveTime Intent = "MOVE_TIME"
	IntentInsert   Intent = "INSERT"
	IntentDelete   Intent = "DELETE"
	IntentReplace  Intent = "REPLACE"
	IntentUpdate   Intent = "UPDATE"
	IntentExplain  Intent = "EXPLAIN"
	IntentBooking  Intent = "BOOKING"
	IntentUnknown  Intent = "UNKNOWN"
)

// IsMutating reports whether intent requires the Planner agent to compute a
// ChangeSet, as opposed to EXPLAIN (answered directly) or UNKNOWN (rejected).
func (i Intent) IsMutating() bool {
	switch i {
	case IntentMoveTime, IntentInsert, IntentDelete, IntentReplace, IntentUpdate, IntentBooking:
		return true
	}
	return false
}

// intentRule pairs a regular expression with the intent it signals. Rules
// are tried in order; the first match wins. This mirrors tarsy's
// step-detection style of matching small, specific patterns before falling
// back to a model call (pkg/agent/controller/react.go).
type intentRule struct {
	intent  Intent
	pattern *regexp.Regexp
}

var intentRules = []intentRule{
	{IntentDelete, regexp.MustCompile(`(?i)\b(delete|remove|cancel|drop)\b`)},
	{IntentInsert, regexp.MustCompile(`(?i)\b(add|insert|include|book (?:a|an|another))\b`)},
	{IntentMoveTime, regexp.MustCompile(`(?i)\b(move|reschedule|push back|bring forward|shift)\b.*\b(to|by|earlier|later)\b`)},
	{IntentMoveTime, regexp.MustCompile(`(?i)\b(earlier|later)\b`)},
	{IntentReplace, regexp.MustCompile(`(?i)\b(replace|swap|instead of|different)\b`)},
	{IntentBooking, regexp.MustCompile(`(?i)\b(book|reserve|reservation|confirm booking)\b`)},
	{IntentExplain, regexp.MustCompile(`(?i)\b(why|what|explain|how come|tell me about)\b`)},
	{IntentUpdate, regexp.MustCompile(`(?i)\b(rename|update|change|edit|set)\b`)},
}

// classifyRuleBased runs the fast regex table. ok is false when nothing
// matched, signaling the caller to fall back to an AI client call.
func classifyRuleBased(text string) (Intent, bool) {
	for _, rule := range intentRules {
		if rule.pattern.MatchString(text) {
			return rule.intent, true
		}
	}
	return IntentUnknown, false
}

// classifyWithAI asks the AI client to pick one of the fixed intents when
// the rule-based classifier found nothing. Any error, or a response outside
// the enum, degrades to UNKNOWN rather than failing the whole request
// (spec §4.6: "ambiguity -> UNKNOWN").
func classifyWithAI(ctx context.Context, client AIClient, text string) Intent {
	if client == nil {
		return IntentUnknown
	}

	req := ai.Request{
		Messages: []ai.Message{
			{Role: "system", Content: "Classify the traveler's request into exactly one of: MOVE_TIME, INSERT, DELETE, REPLACE, UPDATE, EXPLAIN, BOOKING, UNKNOWN. Respond with a JSON object {\"intent\": \"...\"}."},
			{Role: "user", Content: text},
		},
		Schema: map[string]any{
			"type":       "object",
			"required":   []string{"intent"},
			"properties": map[string]any{"intent": map[string]any{"type": "string"}},
		},
	}

	var out struct {
		Intent string `json:"intent"`
	}
	if _, err := client.GenerateStructured(ctx, req, &out); err != nil {
		return IntentUnknown
	}

	switch Intent(strings.ToUpper(strings.TrimSpace(out.Intent))) {
	case IntentMoveTime, IntentInsert, IntentDelete, IntentReplace, IntentUpdate, IntentExplain, IntentBooking:
		return Intent(strings.ToUpper(strings.TrimSpace(out.Intent)))
	default:
		return IntentUnknown
	}
}
