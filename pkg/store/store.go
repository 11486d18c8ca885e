package store

import (
	"context"

	"github.com/tripforge/itineraryd/pkg/model"
)

// Store is the persistence contract the Change Engine (C3) writes through
// (spec §4.2). Implementations must serialize operations on the same
// itineraryId (see Lock) and treat appendRevision as append-only.
type Store interface {
	// Get loads the current document for itineraryId. Returns
	// model.ErrNotFound if absent.
	Get(ctx context.Context, itineraryID string) (*model.Itinerary, error)

	// Save persists itinerary as the current document. It does not itself
	// bump the version or touch the revision log — callers (the engine)
	// own that under Lock.
	Save(ctx context.Context, itinerary *model.Itinerary) error

	// Delete removes an itinerary and its revision history.
	Delete(ctx context.Context, itineraryID string) error

	// List returns summaries of every itinerary owned by ownerID, or all
	// itineraries when ownerID is empty.
	List(ctx context.Context, ownerID string) ([]*model.Itinerary, error)

	// AppendRevision appends a revision record. Append-only: callers never
	// update or remove an existing revision.
	AppendRevision(ctx context.Context, revision *model.Revision) error

	// ListRevisions returns the revision history for itineraryID, ordered
	// by ascending version.
	ListRevisions(ctx context.Context, itineraryID string) ([]*model.Revision, error)

	// GetRevision returns the revision at a specific version, or
	// model.ErrNotFound if no snapshot exists at that version.
	GetRevision(ctx context.Context, itineraryID string, version int) (*model.Revision, error)

	// Lock acquires the per-itinerary exclusive section required around
	// every write path (spec §5). The returned func releases it; callers
	// must always call it, typically via defer.
	Lock(ctx context.Context, itineraryID string) (unlock func())
}
