package inventory

import (
	"context"
	"time"
)

// Store persists inventory batches. Implementations must return batches in
// ascending expiry order so consumption drains the earliest-expiring first.
type Store interface {
	Insert(ctx context.Context, batch *Batch) error
	Get(ctx context.Context, id string) (*Batch, error)
	// List returns all batches, optionally filtered by group, expiry asc.
	List(ctx context.Context, group BloodGroup) ([]Batch, error)
	// ListUsable returns non-expired batches with units remaining for the
	// group, expiry asc.
	ListUsable(ctx context.Context, group BloodGroup, now time.Time) ([]Batch, error)
	// DecrementUnits atomically subtracts units from a batch, failing with
	// sentinel.ErrInsufficientUnits if the batch holds fewer than requested.
	DecrementUnits(ctx context.Context, id string, units int, now time.Time) error
	// CountForGroupAndDate supports human-readable batch code sequencing.
	CountForGroupAndDate(ctx context.Context, group BloodGroup, date time.Time) (int, error)
}
