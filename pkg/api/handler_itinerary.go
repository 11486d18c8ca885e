package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/tripforge/itineraryd/pkg/agent"
	"github.com/tripforge/itineraryd/pkg/agent/prompt"
	"github.com/tripforge/itineraryd/pkg/model"
)

// createItineraryHandler handles POST /itineraries (spec §6.1, scenario S1).
// It persists an empty, StatusGenerating placeholder document immediately so
// the returned itineraryId is usable right away, then kicks off the Planner
// agent's initial-generation run in the background; progress arrives over
// the agent.<id> topic and the finished document as a patch event on the
// itinerary.<id> topic (spec §4.7).
func (s *Server) createItineraryHandler(c *echo.Context) error {
	var req createItineraryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	req.OwnerID = extractOwnerID(c)
	if err := req.Validate(); err != nil {
		return mapDomainError(err)
	}

	now := time.Now().UnixMilli()
	it := model.NewItinerary(uuid.New().String(), req.OwnerID, now)
	it.Status = model.StatusGenerating
	it.Agents[model.AgentKindPlanner] = &model.AgentRunStatus{
		Kind:   model.AgentKindPlanner,
		Status: model.RunQueued,
	}

	if err := s.store.Save(c.Request().Context(), it); err != nil {
		return mapDomainError(err)
	}

	executionID := uuid.New().String()
	s.runInitialGeneration(executionID, it.ItineraryID, req)

	return c.JSON(http.StatusAccepted, &createItineraryResponse{
		Itinerary:           it,
		ExecutionID:         executionID,
		EstimatedCompletion: time.Now().Add(45 * time.Second).Format(time.RFC3339),
		Status:              string(model.RunQueued),
		Stages:              []string{"destination_research", "day_structuring", "node_generation"},
	})
}

// runInitialGeneration drives the Planner agent outside the request's
// lifetime. It publishes its own queued/running/succeeded/failed events on
// the agent.<id> topic since Runner's lifecycle wrapper is shaped around
// ChangeSet-producing runs, not the full-document initial generation mode
// (spec §4.5).
func (s *Server) runInitialGeneration(executionID, itineraryID string, req createItineraryRequest) {
	if s.planner == nil {
		return
	}
	runID := s.runRegistry.StartFunc(context.Background(), func(ctx context.Context) {
		topic := agent.AgentTopic(itineraryID)
		s.publish(topic, agent.Event{
			AgentID: executionID, Kind: model.AgentKindPlanner, Status: agent.StatusQueued,
			Progress: 0, Message: "queued", ItineraryID: itineraryID, Timestamp: time.Now().UnixMilli(),
		})
		s.publish(topic, agent.Event{
			AgentID: executionID, Kind: model.AgentKindPlanner, Status: agent.StatusRunning,
			Progress: 10, Message: "generating itinerary", ItineraryID: itineraryID, Timestamp: time.Now().UnixMilli(),
		})

		doc, err := s.planner.GenerateInitial(ctx, prompt.InitialGenerationRequest{
			Destination: req.Destination,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Adults:      req.Party.Adults,
			Children:    req.Party.Children,
			BudgetTier:  string(req.BudgetTier),
			Interests:   req.Interests,
			Language:    req.Language,
		})
		if err != nil {
			s.failAgentRun(ctx, itineraryID, executionID, model.AgentKindPlanner, err)
			return
		}

		if _, err := s.engine.ReplaceDocument(ctx, itineraryID, doc, model.OriginAgent); err != nil {
			s.failAgentRun(ctx, itineraryID, executionID, model.AgentKindPlanner, err)
			return
		}

		s.publish(topic, agent.Event{
			AgentID: executionID, Kind: model.AgentKindPlanner, Status: agent.StatusSucceeded,
			Progress: 100, Message: "done", ItineraryID: itineraryID, Timestamp: time.Now().UnixMilli(),
		})
	})
	_ = runID
}

func (s *Server) failAgentRun(ctx context.Context, itineraryID, executionID string, kind model.AgentKind, err error) {
	s.publish(agent.AgentTopic(itineraryID), agent.Event{
		AgentID: executionID, Kind: kind, Status: agent.StatusFailed,
		Progress: 100, Message: err.Error(), ItineraryID: itineraryID, Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) publish(topic string, event any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, event)
}

// listItinerariesHandler handles GET /itineraries, returning the caller's
// own itineraries as lightweight summaries.
func (s *Server) listItinerariesHandler(c *echo.Context) error {
	ownerID := extractOwnerID(c)
	items, err := s.store.List(c.Request().Context(), ownerID)
	if err != nil {
		return mapDomainError(err)
	}

	out := make([]*itinerarySummary, 0, len(items))
	for _, it := range items {
		out = append(out, &itinerarySummary{
			ItineraryID: it.ItineraryID,
			Summary:     it.Summary,
			Status:      it.Status,
			Days:        len(it.Days),
			UpdatedAt:   it.UpdatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// getItineraryHandler handles GET /itineraries/{id}/json, returning the full
// normalized document.
func (s *Server) getItineraryHandler(c *echo.Context) error {
	it, err := s.engine.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, it)
}

// deleteItineraryHandler handles DELETE /itineraries/{id}.
func (s *Server) deleteItineraryHandler(c *echo.Context) error {
	if err := s.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// proposeHandler handles POST /itineraries/{id}/propose, previewing a
// ChangeSet's effect without committing it (spec §4.2).
func (s *Server) proposeHandler(c *echo.Context) error {
	var req proposeApplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	cs := &model.ChangeSet{Scope: req.Scope, Day: req.Day, Ops: req.Ops, Preferences: req.Preferences, Author: model.OriginUser}
	result, err := s.engine.Propose(c.Request().Context(), c.Param("id"), cs)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, &proposeResponse{Proposed: result.Proposed, Diff: result.Diff, PreviewVersion: result.PreviewVersion})
}

// applyHandler handles POST /itineraries/{id}/apply, committing a ChangeSet
// and bumping the document's version (spec §4.1).
func (s *Server) applyHandler(c *echo.Context) error {
	var req proposeApplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	cs := &model.ChangeSet{Scope: req.Scope, Day: req.Day, Ops: req.Ops, Preferences: req.Preferences, Author: model.OriginUser}
	result, err := s.engine.Apply(c.Request().Context(), c.Param("id"), cs)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, &applyResponse{ToVersion: result.ToVersion, Diff: result.Diff})
}

// undoHandler handles POST /itineraries/{id}/undo, reverting to the
// previous revision (spec §4.3).
func (s *Server) undoHandler(c *echo.Context) error {
	result, err := s.engine.Undo(c.Request().Context(), c.Param("id"), nil)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, &applyResponse{ToVersion: result.ToVersion, Diff: result.Diff})
}

// rollbackHandler handles POST /itineraries/{id}/revisions/{version}/rollback,
// reverting to an arbitrary prior revision (spec §4.3).
func (s *Server) rollbackHandler(c *echo.Context) error {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "version must be an integer")
	}
	result, err := s.engine.Undo(c.Request().Context(), c.Param("id"), &version)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, &applyResponse{ToVersion: result.ToVersion, Diff: result.Diff})
}

// lockNodeHandler handles PUT /itineraries/{id}/nodes/{nodeId}/lock. It reads,
// flips, and saves the node's lock flag under the same per-itinerary
// exclusive section Engine.Apply/Undo hold, so a concurrent apply can't land
// between this handler's Get and Save and have its version clobbered by a
// stale Save here (spec §5).
func (s *Server) lockNodeHandler(c *echo.Context) error {
	var req lockNodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	itineraryID, nodeID := c.Param("id"), c.Param("nodeId")
	ctx := c.Request().Context()

	unlock := s.store.Lock(ctx, itineraryID)
	defer unlock()

	it, err := s.store.Get(ctx, itineraryID)
	if err != nil {
		return mapDomainError(err)
	}
	node, _, ok := it.FindNode(nodeID)
	if !ok {
		return mapDomainError(model.ErrNotFound)
	}
	node.Locked = req.Locked
	if err := s.store.Save(ctx, it); err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, &lockNodeResponse{Success: true, NodeID: nodeID, Locked: req.Locked})
}

// listRevisionsHandler handles GET /itineraries/{id}/revisions.
func (s *Server) listRevisionsHandler(c *echo.Context) error {
	revisions, err := s.store.ListRevisions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, revisions)
}
