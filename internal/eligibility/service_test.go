package eligibility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/requestcontext"
)

type fakeDonorStore struct {
	donors map[string]*DonorProfile
}

func (f *fakeDonorStore) GetDonor(_ context.Context, donorID string) (*DonorProfile, error) {
	return f.donors[donorID], nil
}

type fakeHistory struct {
	last map[string]*time.Time
}

func (f *fakeHistory) LastApprovedCompletion(_ context.Context, donorID string) (*time.Time, error) {
	return f.last[donorID], nil
}

func newCheckFixture(profile *DonorProfile, last *time.Time) *Service {
	donors := &fakeDonorStore{donors: map[string]*DonorProfile{}}
	history := &fakeHistory{last: map[string]*time.Time{}}
	if profile != nil {
		donors.donors[profile.ID] = profile
		history.last[profile.ID] = last
	}
	return NewService(donors, history)
}

func activeDonor() *DonorProfile {
	return &DonorProfile{ID: "d1", BloodGroup: "O+", Age: 30, IsActive: true}
}

func TestCheck_FirstTimeDonorIsEligible(t *testing.T) {
	svc := newCheckFixture(activeDonor(), nil)

	result, err := svc.Check(context.Background(), "d1")

	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.Zero(t, result.DaysRemaining)
	assert.Nil(t, result.NextEligibleDate)
}

func TestCheck_InsideBufferPeriod(t *testing.T) {
	now := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -10)
	svc := newCheckFixture(activeDonor(), &last)

	ctx := requestcontext.WithTime(context.Background(), now)
	result, err := svc.Check(ctx, "d1")

	require.NoError(t, err)
	assert.False(t, result.Eligible)
	assert.Equal(t, 46, result.DaysRemaining)
	require.NotNil(t, result.NextEligibleDate)
	assert.Equal(t, last.AddDate(0, 0, BufferDays), *result.NextEligibleDate)
	assert.Contains(t, result.Reason, "You can donate again on")
}

func TestCheck_BufferMonotonicity(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newCheckFixture(activeDonor(), &last)

	for day := 1; day < BufferDays; day++ {
		ctx := requestcontext.WithTime(context.Background(), last.AddDate(0, 0, day))
		result, err := svc.Check(ctx, "d1")
		require.NoError(t, err)
		assert.False(t, result.Eligible, "day %d should still be blocked", day)
	}

	ctx := requestcontext.WithTime(context.Background(), last.AddDate(0, 0, BufferDays))
	result, err := svc.Check(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, result.Eligible)
}

func TestCheck_ProfileGates(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*DonorProfile)
	}{
		{"inactive account", func(p *DonorProfile) { p.IsActive = false }},
		{"underage", func(p *DonorProfile) { p.Age = 17 }},
		{"over age limit", func(p *DonorProfile) { p.Age = 66 }},
		{"missing blood group", func(p *DonorProfile) { p.BloodGroup = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := activeDonor()
			tt.mut(profile)
			svc := newCheckFixture(profile, nil)

			result, err := svc.Check(context.Background(), "d1")

			require.NoError(t, err)
			assert.False(t, result.Eligible)
			assert.NotEmpty(t, result.Reason)
		})
	}
}

func TestCheck_UnknownDonor(t *testing.T) {
	svc := newCheckFixture(nil, nil)

	_, err := svc.Check(context.Background(), "missing")

	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
