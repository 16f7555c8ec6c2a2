package donation

import (
	"context"
	"time"
)

// Store persists donation records.
//
// Create must enforce the one-open-record-per-donor rule at the datastore
// layer (partial unique index in Postgres) and surface a violation as
// sentinel.ErrConflict; the service's pre-check only exists to produce a
// friendly error payload, the constraint is what closes the race.
type Store interface {
	Create(ctx context.Context, record *DonationRecord) error
	Get(ctx context.Context, id string) (*DonationRecord, error)
	// FindOpenByDonor returns the donor's pending or scheduled record, or
	// sentinel.ErrNotFound when none exists.
	FindOpenByDonor(ctx context.Context, donorID string) (*DonationRecord, error)
	// LastApprovedCompletion returns the donation date of the donor's most
	// recent completed record with admin or AI verification, nil for a
	// first-time donor.
	LastApprovedCompletion(ctx context.Context, donorID string) (*time.Time, error)
	ListByDonor(ctx context.Context, donorID string) ([]DonationRecord, error)
	ListByStatus(ctx context.Context, status Status) ([]DonationRecord, error)
	// UpdateDecision persists the record's decision fields if and only if
	// the stored row is still open, returning sentinel.ErrInvalidState when
	// a concurrent decision got there first. This guard is the idempotency
	// mechanism for retried decisions.
	UpdateDecision(ctx context.Context, record *DonationRecord) error
}
