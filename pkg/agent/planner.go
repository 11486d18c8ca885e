package agent

import (
	"context"
	"fmt"

	"github.com/tripforge/itineraryd/pkg/agent/prompt"
	"github.com/tripforge/itineraryd/pkg/ai"
	"github.com/tripforge/itineraryd/pkg/model"
)

// AIClient is the subset of ai.Chain the Planner needs. Narrowed to an
// interface so tests can stub it without constructing a real provider
// chain.
type AIClient interface {
	GenerateStructured(ctx context.Context, req ai.Request, v any) (*ai.Response, error)
}

// PlannerAgent implements both Planner Agent modes described in spec §4.5:
// initial generation through GenerateInitial, which returns a full document,
// and modification through Run (in.Current is the itinerary to modify and
// Request is the natural-language instruction).
type PlannerAgent struct {
	client AIClient
}

// NewPlannerAgent constructs a PlannerAgent backed by client.
func NewPlannerAgent(client AIClient) *PlannerAgent {
	return &PlannerAgent{client: client}
}

func (a *PlannerAgent) Kind() model.AgentKind { return model.AgentKindPlanner }

// Run computes a modification ChangeSet for in.Current. It returns an error
// when in.Current is nil: initial generation goes through GenerateInitial.
func (a *PlannerAgent) Run(ctx context.Context, in Input) (*model.ChangeSet, error) {
	if in.Current == nil {
		return nil, fmt.Errorf("planner: initial generation does not produce a ChangeSet, call GenerateInitial directly")
	}
	return a.modify(ctx, in.Current, in.Request)
}

// generatedDocument is the shape the AI client returns for initial
// generation, matching prompt.itineraryDocumentSchema.
type generatedDocument struct {
	Summary  string   `json:"summary"`
	Currency string   `json:"currency"`
	Themes   []string `json:"themes"`
	Days     []struct {
		DayNumber int    `json:"dayNumber"`
		Date      string `json:"date"`
		Location  string `json:"location"`
		Nodes     []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Title    string `json:"title"`
			Location struct {
				Name    string   `json:"name"`
				Address string   `json:"address"`
				Lat     *float64 `json:"lat"`
				Lng     *float64 `json:"lng"`
			} `json:"location"`
			Timing struct {
				StartTime   string `json:"startTime"`
				EndTime     string `json:"endTime"`
				DurationMin int    `json:"durationMin"`
			} `json:"timing"`
			Cost struct {
				Amount   float64 `json:"amount"`
				Currency string  `json:"currency"`
			} `json:"cost"`
		} `json:"nodes"`
		Edges []struct {
			From        string `json:"from"`
			To          string `json:"to"`
			TransitInfo *struct {
				Mode        string  `json:"mode"`
				DurationMin int     `json:"durationMin"`
				DistanceKm  float64 `json:"distanceKm"`
			} `json:"transitInfo"`
		} `json:"edges"`
	} `json:"days"`
}

// GenerateInitial runs the initial-generation mode and returns the full
// document, ready for Engine.ReplaceDocument. It does not go through
// Agent.Run/ChangeSet because spec §4.5 describes initial generation as
// producing a full document, not an incremental op set.
func (a *PlannerAgent) GenerateInitial(ctx context.Context, req prompt.InitialGenerationRequest) (*model.Itinerary, error) {
	aiReq := prompt.BuildInitialGeneration(req)

	var doc generatedDocument
	if _, err := a.client.GenerateStructured(ctx, aiReq, &doc); err != nil {
		return nil, fmt.Errorf("planner: initial generation failed: %w", err)
	}

	it := &model.Itinerary{
		Summary:  doc.Summary,
		Currency: doc.Currency,
		Themes:   doc.Themes,
		Status:   model.StatusCompleted,
		Settings: model.Settings{DefaultScope: model.ScopeTrip, RespectLocks: true},
	}
	if it.Themes == nil {
		it.Themes = []string{}
	}

	for _, d := range doc.Days {
		day := &model.Day{DayNumber: d.DayNumber, Date: d.Date, Location: d.Location}
		for _, n := range d.Nodes {
			startMs, err := model.NormalizeClockTime(n.Timing.StartTime, d.Date)
			if err != nil {
				return nil, fmt.Errorf("planner: node %q: %w", n.ID, err)
			}
			endMs, err := model.NormalizeClockTime(n.Timing.EndTime, d.Date)
			if err != nil {
				return nil, fmt.Errorf("planner: node %q: %w", n.ID, err)
			}
			node := &model.Node{
				ID:       n.ID,
				Type:     model.NodeType(n.Type),
				Title:    n.Title,
				Location: model.Location{Name: n.Location.Name, Address: n.Location.Address, Lat: n.Location.Lat, Lng: n.Location.Lng},
				Timing:   model.Timing{StartTime: startMs, EndTime: endMs, DurationMin: n.Timing.DurationMin},
				Cost:     model.Cost{Amount: n.Cost.Amount, Currency: n.Cost.Currency},
				Status:   model.NodePlanned,
				UpdatedBy: model.OriginAgent,
			}
			day.Nodes = append(day.Nodes, node)
		}
		for _, e := range d.Edges {
			edge := model.Edge{From: e.From, To: e.To}
			if e.TransitInfo != nil {
				edge.TransitInfo = &model.TransitInfo{Mode: e.TransitInfo.Mode, DurationMin: e.TransitInfo.DurationMin, DistanceKm: e.TransitInfo.DistanceKm}
			}
			day.Edges = append(day.Edges, edge)
		}
		it.Days = append(it.Days, day)
	}

	return it, nil
}

// modify runs the modification mode: ask the AI client for a ChangeSet,
// then self-police against locked nodes before handing it back (spec §4.5
// requires the agent to self-check even though the engine re-enforces).
func (a *PlannerAgent) modify(ctx context.Context, current *model.Itinerary, request string) (*model.ChangeSet, error) {
	aiReq, err := prompt.BuildModification(current, request)
	if err != nil {
		return nil, err
	}

	var cs model.ChangeSet
	if _, err := a.client.GenerateStructured(ctx, aiReq, &cs); err != nil {
		return nil, fmt.Errorf("planner: modification failed: %w", err)
	}
	cs.Author = model.OriginAgent
	if cs.Preferences == (model.Preferences{}) {
		cs.Preferences = model.DefaultPreferences()
	}

	if err := cs.Validate(); err != nil {
		return nil, fmt.Errorf("planner: AI client returned an invalid ChangeSet: %w", err)
	}

	for i, op := range cs.Ops {
		if !op.IsDestructiveOrMutating() {
			continue
		}
		if node, _, ok := current.FindNode(op.ID); ok && node.Locked {
			return nil, fmt.Errorf("%w: op %d targets locked node %q", model.ErrValidation, i, op.ID)
		}
	}

	return &cs, nil
}
