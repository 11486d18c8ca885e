package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripforge/itineraryd/pkg/agent"
	"github.com/tripforge/itineraryd/pkg/model"
)

type blockingAgent struct {
	kind    model.AgentKind
	release chan struct{}
}

func (a *blockingAgent) Kind() model.AgentKind { return a.kind }

func (a *blockingAgent) Run(ctx context.Context, _ agent.Input) (*model.ChangeSet, error) {
	select {
	case <-a.release:
		return &model.ChangeSet{Scope: model.ScopeTrip}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRunRegistryStartTracksActiveRun(t *testing.T) {
	a := &blockingAgent{kind: model.AgentKindPlanner, release: make(chan struct{})}
	runner := agent.NewRunner(a, nil)
	reg := NewRunRegistry()
	done := make(chan struct{})

	runID := reg.Start(context.Background(), runner, agent.Input{ItineraryID: "it_1"}, func(_ *model.ChangeSet, _ error) {
		close(done)
	})

	require.NotEmpty(t, runID)
	assert.Equal(t, 1, reg.Active())

	close(a.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not complete in time")
	}
	assert.Equal(t, 0, reg.Active())
}

func TestRunRegistryCancelStopsInFlightRun(t *testing.T) {
	a := &blockingAgent{kind: model.AgentKindPlanner, release: make(chan struct{})}
	runner := agent.NewRunner(a, nil)
	reg := NewRunRegistry()
	var runErr error
	done := make(chan struct{})

	runID := reg.Start(context.Background(), runner, agent.Input{ItineraryID: "it_1"}, func(_ *model.ChangeSet, err error) {
		runErr = err
		close(done)
	})

	ok := reg.Cancel(runID)
	assert.True(t, ok)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelled run did not complete in time")
	}
	assert.True(t, errors.Is(runErr, context.Canceled))
}

func TestRunRegistryCancelUnknownRunReturnsFalse(t *testing.T) {
	reg := NewRunRegistry()
	assert.False(t, reg.Cancel("does-not-exist"))
}
