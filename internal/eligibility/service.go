package eligibility

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/requestcontext"
)

// DonorStore is the slice of the external account store this service reads.
// Account management itself is owned elsewhere.
type DonorStore interface {
	GetDonor(ctx context.Context, donorID string) (*DonorProfile, error)
}

// DonationHistory reports the donor's most recent completed and
// admin-approved donation, or nil for a first-time donor.
type DonationHistory interface {
	LastApprovedCompletion(ctx context.Context, donorID string) (*time.Time, error)
}

// Service answers donor eligibility questions. Scoring itself stays in the
// pure rules; this layer only gathers the inputs.
type Service struct {
	donors  DonorStore
	history DonationHistory
}

func NewService(donors DonorStore, history DonationHistory) *Service {
	return &Service{donors: donors, history: history}
}

// Check decides whether the donor may submit a new donation now. Profile and
// donation history load concurrently with shared cancellation.
func (s *Service) Check(ctx context.Context, donorID string) (Eligibility, error) {
	now := requestcontext.Now(ctx)

	var (
		profile *DonorProfile
		last    *time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.donors.GetDonor(gctx, donorID)
		if err != nil {
			return fmt.Errorf("load donor profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		l, err := s.history.LastApprovedCompletion(gctx, donorID)
		if err != nil {
			return fmt.Errorf("load donation history: %w", err)
		}
		last = l
		return nil
	})
	if err := g.Wait(); err != nil {
		return Eligibility{}, err
	}
	if profile == nil {
		return Eligibility{}, dErrors.New(dErrors.CodeNotFound, "donor not found")
	}

	return evaluate(profile, last, now), nil
}

// Profile exposes the donor profile for callers that need blood group or
// contact details alongside an eligibility answer.
func (s *Service) Profile(ctx context.Context, donorID string) (*DonorProfile, error) {
	return s.donors.GetDonor(ctx, donorID)
}

func evaluate(profile *DonorProfile, last *time.Time, now time.Time) Eligibility {
	if !profile.IsActive {
		return Eligibility{Reason: "Donor account is not active"}
	}
	if profile.Age < MinDonorAge || profile.Age > MaxDonorAge {
		return Eligibility{Reason: fmt.Sprintf("Donors must be between %d and %d years old", MinDonorAge, MaxDonorAge)}
	}
	if profile.BloodGroup == "" {
		return Eligibility{Reason: "Blood group is not recorded on the donor profile"}
	}
	if last != nil {
		if remaining := DaysRemaining(*last, now); remaining > 0 {
			next := NextEligibleDate(*last)
			return Eligibility{
				DaysRemaining:    remaining,
				NextEligibleDate: &next,
				Reason:           fmt.Sprintf("You can donate again on %s", next.Format("2006-01-02")),
			}
		}
	}
	return Eligibility{Eligible: true}
}
