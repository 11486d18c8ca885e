// Package api exposes itineraryd's HTTP surface (spec §6.1): itinerary
// CRUD, the propose/apply/undo change pipeline, revision history, the chat
// orchestrator entry point, the mock booking flow, and the WebSocket/polling
// push-delivery endpoints (spec §6.2).
package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/tripforge/itineraryd/pkg/agent/prompt"
	"github.com/tripforge/itineraryd/pkg/engine"
	"github.com/tripforge/itineraryd/pkg/events"
	"github.com/tripforge/itineraryd/pkg/model"
	"github.com/tripforge/itineraryd/pkg/orchestrator"
	"github.com/tripforge/itineraryd/pkg/version"
)

// Engine is the subset of engine.Engine the API drives.
type Engine interface {
	Get(ctx context.Context, itineraryID string) (*model.Itinerary, error)
	Propose(ctx context.Context, itineraryID string, cs *model.ChangeSet) (*engine.ProposeResult, error)
	Apply(ctx context.Context, itineraryID string, cs *model.ChangeSet) (*engine.ApplyResult, error)
	Undo(ctx context.Context, itineraryID string, toVersion *int) (*engine.ApplyResult, error)
}

// Store is the subset of store.Store the API needs directly, for listing,
// deleting, reading revision history (operations the Change Engine doesn't
// itself expose since it only mediates writes), and the node-lock
// read-modify-write, which must hold the same per-itinerary exclusive
// section as the Change Engine's write paths (spec §5) to avoid racing
// apply/undo.
type Store interface {
	Get(ctx context.Context, itineraryID string) (*model.Itinerary, error)
	Save(ctx context.Context, itinerary *model.Itinerary) error
	Delete(ctx context.Context, itineraryID string) error
	List(ctx context.Context, ownerID string) ([]*model.Itinerary, error)
	ListRevisions(ctx context.Context, itineraryID string) ([]*model.Revision, error)
	Lock(ctx context.Context, itineraryID string) (unlock func())
}

// Planner is the subset of agent.PlannerAgent the API needs for initial
// generation. Run asynchronously by createItineraryHandler.
type Planner interface {
	GenerateInitial(ctx context.Context, req prompt.InitialGenerationRequest) (*model.Itinerary, error)
}

// Orchestrator is the subset of orchestrator.Orchestrator the chat endpoint
// drives.
type Orchestrator interface {
	Route(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error)
}

// Server is the HTTP API server.
type Server struct {
	echo *echo.Echo

	httpServer *http.Server

	engine       Engine
	store        Store
	orchestrator Orchestrator
	planner      Planner
	runRegistry  *orchestrator.RunRegistry
	bus          *events.Bus
	connManager  *events.ConnectionManager

	allowedOrigins []string
}

// NewServer wires an HTTP server around the Change Engine, Store,
// Orchestrator, and event delivery layer. planner/runRegistry drive the
// asynchronous Planner run kicked off by POST /itineraries; bus is used to
// publish that run's progress events directly (ConnectionManager only
// exposes the WebSocket-facing subscribe side of the same Bus).
func NewServer(
	eng Engine,
	st Store,
	orch Orchestrator,
	planner Planner,
	runRegistry *orchestrator.RunRegistry,
	bus *events.Bus,
	connManager *events.ConnectionManager,
	allowedOrigins []string,
) *Server {
	e := echo.New()

	s := &Server{
		echo:           e,
		engine:         eng,
		store:          st,
		orchestrator:   orch,
		planner:        planner,
		runRegistry:    runRegistry,
		bus:            bus,
		connManager:    connManager,
		allowedOrigins: allowedOrigins,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())
	s.echo.Use(cors(s.allowedOrigins))

	s.echo.GET("/health", s.healthHandler)

	s.echo.POST("/itineraries", s.createItineraryHandler)
	s.echo.GET("/itineraries", s.listItinerariesHandler)
	s.echo.GET("/itineraries/:id/json", s.getItineraryHandler)
	s.echo.DELETE("/itineraries/:id", s.deleteItineraryHandler)
	s.echo.POST("/itineraries/:id/propose", s.proposeHandler)
	s.echo.POST("/itineraries/:id/apply", s.applyHandler)
	s.echo.POST("/itineraries/:id/undo", s.undoHandler)
	s.echo.PUT("/itineraries/:id/nodes/:nodeId/lock", s.lockNodeHandler)
	s.echo.GET("/itineraries/:id/revisions", s.listRevisionsHandler)
	s.echo.POST("/itineraries/:id/revisions/:version/rollback", s.rollbackHandler)

	s.echo.POST("/chat/route", s.chatRouteHandler)
	s.echo.POST("/book", s.bookHandler)

	s.echo.GET("/agents/:itineraryId/status", s.agentStatusHandler)
	s.echo.GET("/ws", s.wsHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &healthResponse{Status: "healthy", Version: version.Full()})
}
