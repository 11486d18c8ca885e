package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/tripforge/itineraryd/pkg/model"
)

// itineraryDocumentSchema constrains the Planner's initial-generation
// response to the normalized itinerary shape (spec §3.1-§3.3), minus the
// server-assigned fields (itineraryId, version, ownerId, timestamps) the
// engine fills in on ReplaceDocument.
var itineraryDocumentSchema = map[string]any{
	"type":     "object",
	"required": []string{"summary", "currency", "days"},
	"properties": map[string]any{
		"summary":  map[string]any{"type": "string"},
		"currency": map[string]any{"type": "string"},
		"themes":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"days": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"dayNumber", "date", "nodes"},
				"properties": map[string]any{
					"dayNumber": map[string]any{"type": "integer", "minimum": 1},
					"date":      map[string]any{"type": "string"},
					"location":  map[string]any{"type": "string"},
					"nodes": map[string]any{
						"type":  "array",
						"items": nodeSchema,
					},
					"edges": map[string]any{
						"type":  "array",
						"items": edgeSchema,
					},
				},
			},
		},
	},
}

var nodeSchema = map[string]any{
	"type":     "object",
	"required": []string{"id", "type", "title"},
	"properties": map[string]any{
		"id":    map[string]any{"type": "string"},
		"type":  map[string]any{"type": "string", "enum": []string{"attraction", "meal", "accommodation", "transport"}},
		"title": map[string]any{"type": "string"},
		"location": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":    map[string]any{"type": "string"},
				"address": map[string]any{"type": "string"},
				"lat":     map[string]any{"type": "number"},
				"lng":     map[string]any{"type": "number"},
			},
		},
		"timing": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"startTime":   map[string]any{"type": "string", "description": "HH:MM clock time or a fully-qualified RFC3339/epoch-ms instant"},
				"endTime":     map[string]any{"type": "string", "description": "HH:MM clock time or a fully-qualified RFC3339/epoch-ms instant"},
				"durationMin": map[string]any{"type": "integer"},
			},
		},
		"cost": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"amount":   map[string]any{"type": "number"},
				"currency": map[string]any{"type": "string"},
			},
		},
	},
}

var edgeSchema = map[string]any{
	"type":     "object",
	"required": []string{"from", "to"},
	"properties": map[string]any{
		"from": map[string]any{"type": "string"},
		"to":   map[string]any{"type": "string"},
		"transitInfo": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mode":        map[string]any{"type": "string"},
				"durationMin": map[string]any{"type": "integer"},
				"distanceKm":  map[string]any{"type": "number"},
			},
		},
	},
}

// changeSetSchema constrains the Planner's modification-mode response to
// spec §3.4's ChangeSet shape.
var changeSetSchema = map[string]any{
	"type":     "object",
	"required": []string{"scope", "ops"},
	"properties": map[string]any{
		"scope": map[string]any{"type": "string", "enum": []string{"trip", "day"}},
		"day":   map[string]any{"type": "integer"},
		"ops": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"op"},
				"properties": map[string]any{
					"op":       map[string]any{"type": "string", "enum": []string{"insert", "delete", "move", "update", "replace", "update_edge"}},
					"after":    map[string]any{"type": "string"},
					"node":     nodeSchema,
					"id":       map[string]any{"type": "string"},
					"newAfter": map[string]any{"type": "string"},
					"patch":    map[string]any{"type": "object"},
					"edgeFrom": map[string]any{"type": "string"},
					"edgeTo":   map[string]any{"type": "string"},
				},
			},
		},
	},
}

// summarizeForPrompt renders current as compact JSON for inclusion in a
// modification-mode prompt, including only the fields the model needs to
// reference existing nodes (id, title, type, locked, status), grouped by day.
func summarizeForPrompt(current *model.Itinerary) (string, error) {
	type promptNode struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Type   string `json:"type"`
		Locked bool   `json:"locked"`
		Status string `json:"status"`
	}
	type promptDay struct {
		DayNumber int          `json:"dayNumber"`
		Nodes     []promptNode `json:"nodes"`
	}

	days := make([]promptDay, 0, len(current.Days))
	for _, d := range current.Days {
		nodes := make([]promptNode, 0, len(d.Nodes))
		for _, n := range d.Nodes {
			nodes = append(nodes, promptNode{
				ID:     n.ID,
				Title:  n.Title,
				Type:   string(n.Type),
				Locked: n.Locked,
				Status: string(n.Status),
			})
		}
		days = append(days, promptDay{DayNumber: d.DayNumber, Nodes: nodes})
	}

	out, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("prompt: failed to summarize itinerary: %w", err)
	}
	return string(out), nil
}
