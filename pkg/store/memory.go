package store

import (
	"context"
	"sync"

	"github.com/tripforge/itineraryd/pkg/model"
)

// MemoryStore is a concurrent in-memory Store implementation: an
// itineraryId -> document map plus an append-only per-itinerary revision
// log, both guarded by one RWMutex, with a separate per-itinerary mutex
// behind Lock. It satisfies the "implementer
// freedom" clause of spec §4.2 and is the default backend for tests and for
// deployments that don't need cross-process durability.
type MemoryStore struct {
	mu          sync.RWMutex
	itineraries map[string]*model.Itinerary
	revisions   map[string][]*model.Revision

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		itineraries: make(map[string]*model.Itinerary),
		revisions:   make(map[string][]*model.Revision),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Get(_ context.Context, itineraryID string) (*model.Itinerary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.itineraries[itineraryID]
	if !ok {
		return nil, model.NewNotFoundError("itinerary", itineraryID)
	}
	return it.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, itinerary *model.Itinerary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itineraries[itinerary.ItineraryID] = itinerary.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, itineraryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.itineraries, itineraryID)
	delete(s.revisions, itineraryID)
	return nil
}

func (s *MemoryStore) List(_ context.Context, ownerID string) ([]*model.Itinerary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Itinerary, 0, len(s.itineraries))
	for _, it := range s.itineraries {
		if ownerID == "" || it.OwnerID == ownerID {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) AppendRevision(_ context.Context, revision *model.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions[revision.ItineraryID] = append(s.revisions[revision.ItineraryID], revision)
	return nil
}

func (s *MemoryStore) ListRevisions(_ context.Context, itineraryID string) ([]*model.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revs := s.revisions[itineraryID]
	out := make([]*model.Revision, len(revs))
	copy(out, revs)
	return out, nil
}

func (s *MemoryStore) GetRevision(_ context.Context, itineraryID string, version int) (*model.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.revisions[itineraryID] {
		if r.Version == version {
			return r, nil
		}
	}
	return nil, model.NewNotFoundError("revision", itineraryID)
}

// Lock returns the per-itinerary mutex's Lock/Unlock pair, creating the
// mutex on first use. The registry itself never shrinks — itineraries are
// long-lived and the per-entry cost is one sync.Mutex.
func (s *MemoryStore) Lock(_ context.Context, itineraryID string) (unlock func()) {
	s.locksMu.Lock()
	m, ok := s.locks[itineraryID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[itineraryID] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}
