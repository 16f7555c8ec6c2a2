package inventory

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/requestcontext"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, nil, nil, logger), store
}

func timeCtx(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func TestAddBatch_DerivesCodeAndExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := timeCtx(testNow)
	donated := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	batch, err := svc.AddBatch(ctx, AddBatchParams{
		BloodGroup:       APositive,
		Units:            2,
		DonationDate:     donated,
		Location:         "Central Clinic",
		SourceDonationID: "don-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "A+-20250310-001", batch.Code)
	assert.Equal(t, donated.AddDate(0, 0, ShelfLifeDays), batch.ExpiryDate)
	assert.Equal(t, 2, batch.UnitsAvailable)
	assert.Equal(t, "don-1", batch.SourceDonationID)
}

func TestAddBatch_SequencesWithinGroupAndDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := timeCtx(testNow)
	donated := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	add := func(group BloodGroup) *Batch {
		b, err := svc.AddBatch(ctx, AddBatchParams{
			BloodGroup: group, Units: 1, DonationDate: donated, Location: "x",
		})
		require.NoError(t, err)
		return b
	}

	assert.Equal(t, "A+-20250310-001", add(APositive).Code)
	assert.Equal(t, "A+-20250310-002", add(APositive).Code)
	// Another group restarts its own sequence.
	assert.Equal(t, "O--20250310-001", add(ONegative).Code)
}

func TestAddBatch_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := timeCtx(testNow)

	_, err := svc.AddBatch(ctx, AddBatchParams{BloodGroup: "Z+", Units: 1, DonationDate: testNow})
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))

	_, err = svc.AddBatch(ctx, AddBatchParams{BloodGroup: APositive, Units: 0, DonationDate: testNow})
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestBatchStatusBands(t *testing.T) {
	tests := []struct {
		name   string
		expiry time.Time
		status BatchStatus
		days   int
	}{
		{"expired yesterday", testNow.Add(-24 * time.Hour), StatusExpired, -1},
		{"expires this instant", testNow, StatusCritical, 0},
		{"two days left", testNow.Add(48 * time.Hour), StatusCritical, 2},
		{"just over two days", testNow.Add(49 * time.Hour), StatusExpiringSoon, 3},
		{"seven days left", testNow.Add(7 * 24 * time.Hour), StatusExpiringSoon, 7},
		{"over seven days", testNow.Add(7*24*time.Hour + time.Hour), StatusAvailable, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Batch{ExpiryDate: tt.expiry}
			assert.Equal(t, tt.status, b.Status(testNow))
			assert.Equal(t, tt.days, b.DaysRemaining(testNow))
		})
	}
}

func seedBatch(t *testing.T, store *InMemoryStore, id string, group BloodGroup, units, daysToExpiry int) {
	t.Helper()
	require.NoError(t, store.Insert(context.Background(), &Batch{
		ID:             id,
		Code:           id,
		BloodGroup:     group,
		UnitsAvailable: units,
		DonationDate:   testNow.AddDate(0, 0, daysToExpiry-ShelfLifeDays),
		ExpiryDate:     testNow.AddDate(0, 0, daysToExpiry),
	}))
}

func TestConsume_TakesOldestExpiryFirst(t *testing.T) {
	svc, store := newTestService(t)
	seedBatch(t, store, "late", OPositive, 5, 30)
	seedBatch(t, store, "early", OPositive, 2, 5)
	seedBatch(t, store, "middle", OPositive, 3, 12)

	deductions, err := svc.Consume(timeCtx(testNow), OPositive, 6)

	require.NoError(t, err)
	require.Len(t, deductions, 3)
	assert.Equal(t, Deduction{BatchID: "early", Code: "early", Units: 2}, deductions[0])
	assert.Equal(t, Deduction{BatchID: "middle", Code: "middle", Units: 3}, deductions[1])
	assert.Equal(t, Deduction{BatchID: "late", Code: "late", Units: 1}, deductions[2])

	remaining, err := store.Get(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, 4, remaining.UnitsAvailable)
}

func TestConsume_SkipsExpiredAndOtherGroups(t *testing.T) {
	svc, store := newTestService(t)
	seedBatch(t, store, "expired", OPositive, 5, -1)
	seedBatch(t, store, "wrong-group", ANegative, 5, 10)
	seedBatch(t, store, "good", OPositive, 2, 10)

	deductions, err := svc.Consume(timeCtx(testNow), OPositive, 2)

	require.NoError(t, err)
	require.Len(t, deductions, 1)
	assert.Equal(t, "good", deductions[0].BatchID)
}

func TestConsume_InsufficientSupply(t *testing.T) {
	svc, store := newTestService(t)
	seedBatch(t, store, "only", OPositive, 3, 10)

	_, err := svc.Consume(timeCtx(testNow), OPositive, 4)

	require.True(t, dErrors.Is(err, dErrors.CodeInsufficientUnits))
	var dErr *dErrors.DomainError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, 3, dErr.Details["available"])
	assert.Equal(t, 4, dErr.Details["requested"])

	// A failed consumption must not partially deduct.
	b, err := store.Get(context.Background(), "only")
	require.NoError(t, err)
	assert.Equal(t, 3, b.UnitsAvailable)
}

func TestConsume_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Consume(timeCtx(testNow), "Z+", 1)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))

	_, err = svc.Consume(timeCtx(testNow), OPositive, 0)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestSummary_AggregatesUsableSupply(t *testing.T) {
	svc, store := newTestService(t)
	seedBatch(t, store, "a1", APositive, 4, 30)
	seedBatch(t, store, "a2", APositive, 2, 5)
	seedBatch(t, store, "a3", APositive, 3, -2)
	seedBatch(t, store, "o1", ONegative, 1, 1)
	seedBatch(t, store, "drained", ONegative, 0, 10)

	summary, err := svc.Summary(timeCtx(testNow), "")

	require.NoError(t, err)
	require.Len(t, summary.Groups, len(BloodGroups), "every group appears even with zero stock")

	byGroup := make(map[BloodGroup]GroupSummary)
	for _, g := range summary.Groups {
		byGroup[g.BloodGroup] = g
	}

	aPos := byGroup[APositive]
	assert.Equal(t, 6, aPos.TotalUnits, "expired batches are excluded")
	assert.Equal(t, 2, aPos.BatchCount)
	assert.Equal(t, 2, aPos.ExpiringUnits)

	oNeg := byGroup[ONegative]
	assert.Equal(t, 1, oNeg.TotalUnits)
	assert.Equal(t, 1, oNeg.BatchCount, "drained batches do not count")

	assert.Zero(t, byGroup[BPositive].TotalUnits)
}

func TestSummary_SingleGroupFilter(t *testing.T) {
	svc, store := newTestService(t)
	seedBatch(t, store, "a1", APositive, 4, 30)
	seedBatch(t, store, "b1", BPositive, 2, 30)

	summary, err := svc.Summary(timeCtx(testNow), APositive)

	require.NoError(t, err)
	require.Len(t, summary.Groups, 1)
	assert.Equal(t, APositive, summary.Groups[0].BloodGroup)
	assert.Equal(t, 4, summary.Groups[0].TotalUnits)
}

func TestListBatches_DerivedStatus(t *testing.T) {
	svc, store := newTestService(t)
	seedBatch(t, store, "soon", APositive, 4, 5)
	seedBatch(t, store, "fresh", APositive, 2, 40)

	views, err := svc.ListBatches(timeCtx(testNow), APositive)

	require.NoError(t, err)
	require.Len(t, views, 2)
	// Expiry ascending.
	assert.Equal(t, "soon", views[0].ID)
	assert.Equal(t, StatusExpiringSoon, views[0].Status)
	assert.Equal(t, 5, views[0].DaysRemaining)
	assert.Equal(t, StatusAvailable, views[1].Status)
}
