package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hemobank/pkg/platform/sentinel"
)

// InMemoryStore keeps batches in a map. Used by unit tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	batches map[string]*Batch
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{batches: make(map[string]*Batch)}
}

func (s *InMemoryStore) Insert(_ context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[batch.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *batch
	s.batches[batch.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context, group BloodGroup) ([]Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Batch
	for _, b := range s.batches {
		if group != "" && b.BloodGroup != group {
			continue
		}
		out = append(out, *b)
	}
	sortByExpiry(out)
	return out, nil
}

func (s *InMemoryStore) ListUsable(_ context.Context, group BloodGroup, now time.Time) ([]Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Batch
	for _, b := range s.batches {
		if b.BloodGroup != group || !b.Usable(now) {
			continue
		}
		out = append(out, *b)
	}
	sortByExpiry(out)
	return out, nil
}

func (s *InMemoryStore) DecrementUnits(_ context.Context, id string, units int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if b.UnitsAvailable < units {
		return sentinel.ErrInsufficientUnits
	}
	b.UnitsAvailable -= units
	b.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) CountForGroupAndDate(_ context.Context, group BloodGroup, date time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	y, m, d := date.Date()
	for _, b := range s.batches {
		by, bm, bd := b.DonationDate.Date()
		if b.BloodGroup == group && by == y && bm == m && bd == d {
			count++
		}
	}
	return count, nil
}

func sortByExpiry(batches []Batch) {
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].ExpiryDate.Equal(batches[j].ExpiryDate) {
			return batches[i].Code < batches[j].Code
		}
		return batches[i].ExpiryDate.Before(batches[j].ExpiryDate)
	})
}
