package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tripforge/itineraryd/pkg/agent"
	"github.com/tripforge/itineraryd/pkg/model"
)

// RunRegistry tracks in-flight agent runs so they can be cancelled
// externally, mirroring the teacher's WorkerPool cancel registry
// (pkg/queue/pool.go's sessionID→cancel map) generalized from DB-backed
// alert sessions to in-memory agent runs (spec §5: "long-running agent
// runs must be cancellable externally").
type RunRegistry struct {
	mu     sync.RWMutex
	cancel map[string]context.CancelFunc
}

// NewRunRegistry constructs an empty RunRegistry.
func NewRunRegistry() *RunRegistry {
	return &RunRegistry{cancel: make(map[string]context.CancelFunc)}
}

// Start launches an agent run under a cancellable context, registers it
// under a fresh run id, and returns that id immediately; the run proceeds
// in the background via runner. Callers that need the result synchronously
// should use Orchestrator.Route or agent.Runner.Run directly instead.
func (r *RunRegistry) Start(parent context.Context, runner *agent.Runner, in agent.Input, onDone func(*model.ChangeSet, error)) string {
	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	r.cancel[runID] = cancel
	r.mu.Unlock()

	go func() {
		cs, err := func() (*model.ChangeSet, error) {
			defer r.unregister(runID)
			defer cancel()
			return runner.Run(ctx, runID, in)
		}()
		if onDone != nil {
			onDone(cs, err)
		}
	}()

	return runID
}

// StartFunc runs fn under a cancellable context tracked the same way as
// Start, for background work that does not fit the Agent/ChangeSet shape
// (the Planner's initial-generation mode produces a full document, not a
// ChangeSet, so it drives its own progress events instead of going through
// agent.Runner).
func (r *RunRegistry) StartFunc(parent context.Context, fn func(ctx context.Context)) string {
	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	r.cancel[runID] = cancel
	r.mu.Unlock()

	go func() {
		defer r.unregister(runID)
		defer cancel()
		fn(ctx)
	}()

	return runID
}

// Cancel triggers cancellation for runID if it is still in flight. Returns
// false if the run is unknown (already finished, or never started).
func (r *RunRegistry) Cancel(runID string) bool {
	r.mu.RLock()
	cancel, ok := r.cancel[runID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Active reports how many runs are currently tracked.
func (r *RunRegistry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cancel)
}

func (r *RunRegistry) unregister(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancel, runID)
}

// ErrRunNotFound is returned by Cancel callers that want a typed failure
// instead of a bare bool; Cancel itself returns a bool because the registry
// treats "already finished" and "never existed" identically.
var ErrRunNotFound = fmt.Errorf("orchestrator: run not found")
