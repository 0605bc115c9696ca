package requirement

import (
	"errors"
	"fmt"
	"sort"
)

// Common store errors.
var (
	// ErrNotFound is returned when a requirement is not found.
	ErrNotFound = errors.New("requirement not found")
)

// Store supplies the requirement collection for one report run. The graph
// engine only reads; each run should operate on a freshly loaded store.
type Store interface {
	// GetAllRequirements returns the full requirement collection keyed by ID.
	GetAllRequirements() map[string]*Requirement
}

// MemStore is an in-memory Store built from a validated requirement slice.
type MemStore struct {
	reqs map[string]*Requirement
}

// NewMemStore builds a MemStore, rejecting invalid or duplicate records.
func NewMemStore(reqs []*Requirement) (*MemStore, error) {
	m := make(map[string]*Requirement, len(reqs))
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid requirement: %w", err)
		}
		if _, exists := m[r.ID]; exists {
			return nil, fmt.Errorf("duplicate requirement ID: %s", r.ID)
		}
		m[r.ID] = r
	}
	return &MemStore{reqs: m}, nil
}

// GetAllRequirements returns the requirement collection keyed by ID.
func (s *MemStore) GetAllRequirements() map[string]*Requirement {
	return s.reqs
}

// Get returns the requirement with the given ID.
func (s *MemStore) Get(id string) (*Requirement, error) {
	r, ok := s.reqs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Len returns the number of requirements in the store.
func (s *MemStore) Len() int {
	return len(s.reqs)
}

// IDs returns all requirement IDs in sorted order.
func (s *MemStore) IDs() []string {
	ids := make([]string, 0, len(s.reqs))
	for id := range s.reqs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
