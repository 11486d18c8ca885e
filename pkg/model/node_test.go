package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeCanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   NodeStatus
		to     NodeStatus
		legal  bool
	}{
		{"planned to in_progress", NodePlanned, NodeInProgress, true},
		{"planned to skipped", NodePlanned, NodeSkipped, true},
		{"planned to cancelled", NodePlanned, NodeCancelled, true},
		{"planned to completed direct", NodePlanned, NodeCompleted, false},
		{"in_progress to completed", NodeInProgress, NodeCompleted, true},
		{"completed to planned corrective", NodeCompleted, NodePlanned, true},
		{"completed to skipped", NodeCompleted, NodeSkipped, false},
		{"skipped to in_progress", NodeSkipped, NodeInProgress, true},
		{"cancelled is terminal", NodeCancelled, NodePlanned, false},
		{"same status is a no-op", NodePlanned, NodePlanned, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Node{Status: tt.from}
			assert.Equal(t, tt.legal, n.CanTransitionTo(tt.to))
		})
	}
}

func TestNodeIsBooked(t *testing.T) {
	n := &Node{}
	assert.False(t, n.IsBooked())
	n.BookingRef = "BK123"
	assert.True(t, n.IsBooked())
}

func TestNodeValidateCoordinateRange(t *testing.T) {
	bad := -91.0
	n := &Node{Type: NodeAttraction, Location: Location{Lat: &bad}}
	err := n.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNodeValidateUnknownType(t *testing.T) {
	n := &Node{Type: "boat"}
	err := n.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNodeCloneIsDeep(t *testing.T) {
	lat := 41.0
	n := &Node{
		ID:     "n1",
		Type:   NodeAttraction,
		Labels: []string{"Booked"},
		Location: Location{Lat: &lat},
	}
	cp := n.Clone()
	cp.Labels[0] = "Changed"
	*cp.Location.Lat = 0

	assert.Equal(t, "Booked", n.Labels[0])
	assert.Equal(t, 41.0, *n.Location.Lat)
}
