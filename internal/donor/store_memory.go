package donor

import (
	"context"
	"sync"

	"hemobank/internal/eligibility"
)

// InMemoryStore holds donor profiles directly; used in tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	donors map[string]eligibility.DonorProfile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{donors: make(map[string]eligibility.DonorProfile)}
}

// Put inserts or replaces a donor profile.
func (s *InMemoryStore) Put(profile eligibility.DonorProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donors[profile.ID] = profile
}

func (s *InMemoryStore) GetDonor(_ context.Context, donorID string) (*eligibility.DonorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.donors[donorID]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}
