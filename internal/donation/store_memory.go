package donation

import (
	"context"
	"sort"
	"sync"
	"time"

	"hemobank/pkg/platform/sentinel"
)

// InMemoryStore keeps donation records in a map. It enforces the same
// one-open-record invariant the Postgres partial unique index provides.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*DonationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*DonationRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, record *DonationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	if record.Status.Open() {
		for _, existing := range s.records {
			if existing.DonorID == record.DonorID && existing.Status.Open() {
				return sentinel.ErrConflict
			}
		}
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryStore) FindOpenByDonor(_ context.Context, donorID string) (*DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.DonorID == donorID && r.Status.Open() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) LastApprovedCompletion(_ context.Context, donorID string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *time.Time
	for _, r := range s.records {
		if r.DonorID != donorID || r.Status != StatusCompleted {
			continue
		}
		if r.VerificationStatus != VerificationAdminApproved && r.VerificationStatus != VerificationAIVerified {
			continue
		}
		if last == nil || r.DonationDate.After(*last) {
			d := r.DonationDate
			last = &d
		}
	}
	return last, nil
}

func (s *InMemoryStore) ListByDonor(_ context.Context, donorID string) ([]DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DonationRecord
	for _, r := range s.records {
		if r.DonorID == donorID {
			out = append(out, *r)
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status Status) ([]DonationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DonationRecord
	for _, r := range s.records {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (s *InMemoryStore) UpdateDecision(_ context.Context, record *DonationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !existing.Status.Open() {
		return sentinel.ErrInvalidState
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func sortByCreatedDesc(records []DonationRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
