package donation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemobank/internal/audit"
	"hemobank/internal/donor"
	"hemobank/internal/eligibility"
	"hemobank/internal/inventory"
	"hemobank/internal/notify"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/tx"
	"hemobank/pkg/requestcontext"
)

type capturedNotifier struct {
	sent []notify.Decision
}

func (n *capturedNotifier) DecisionMade(_ context.Context, d notify.Decision) {
	n.sent = append(n.sent, d)
}

type fixture struct {
	svc      *Service
	donors   *donor.InMemoryStore
	records  *InMemoryStore
	batches  *inventory.InMemoryStore
	audit    *audit.InMemoryStore
	notifier *capturedNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	donors := donor.NewInMemoryStore()
	records := NewInMemoryStore()
	batches := inventory.NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()
	notifier := &capturedNotifier{}

	svc := NewService(
		records,
		eligibility.NewService(donors, records),
		inventory.NewService(batches, nil, nil, logger),
		audit.NewPublisher(auditStore),
		notifier,
		tx.PassthroughRunner{},
		nil,
		logger,
	)
	return &fixture{
		svc:      svc,
		donors:   donors,
		records:  records,
		batches:  batches,
		audit:    auditStore,
		notifier: notifier,
	}
}

func (f *fixture) seedDonor(id, bloodGroup string) {
	f.donors.Put(eligibility.DonorProfile{
		ID:         id,
		BloodGroup: bloodGroup,
		Age:        30,
		IsActive:   true,
		Email:      id + "@example.com",
		Name:       "Donor " + id,
	})
}

// seedPending inserts a pending record directly, bypassing submission gates,
// for decision-path tests.
func (f *fixture) seedPending(t *testing.T, donorID string, riskScore int) *DonationRecord {
	t.Helper()
	record := &DonationRecord{
		ID:                 "rec-" + donorID,
		DonorID:            donorID,
		BloodGroup:         "A+",
		UnitsRequested:     2,
		DonationCenter:     "Central Clinic",
		DonationDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:             StatusPendingAdminApproval,
		VerificationStatus: VerificationAIVerified,
		RiskScore:          riskScore,
	}
	require.NoError(t, f.records.Create(context.Background(), record))
	return record
}

func adminCtx(now time.Time) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	return requestcontext.WithAdminID(ctx, "admin-1")
}

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func TestSubmitWalkIn_HealthyDonor(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "O+")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	weight, hb := 70.0, 14.0
	result, err := f.svc.SubmitWalkIn(ctx, "d1", "Central Clinic", 2, &eligibility.Vitals{
		Age:        intPtr(30),
		WeightKG:   &weight,
		Hemoglobin: &hb,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPendingAdminApproval, result.Record.Status)
	assert.Equal(t, VerificationAIVerified, result.Record.VerificationStatus)
	assert.Equal(t, inventory.BloodGroup("O+"), result.Record.BloodGroup)
	assert.Equal(t, 0, result.Assessment.RiskScore)
	assert.Equal(t, 2, result.Record.UnitsRequested)

	events := f.audit.All()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSubmitted, events[0].Action)
	assert.Equal(t, result.Record.ID, events[0].Subject)
}

func TestSubmitWalkIn_NoVitalsScoresZero(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "O+")

	result, err := f.svc.SubmitWalkIn(context.Background(), "d1", "Central Clinic", 1, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Record.RiskScore)
}

func TestSubmitWalkIn_RiskScorePersisted(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "B-")

	weight, hb := 48.0, 11.0
	result, err := f.svc.SubmitWalkIn(context.Background(), "d1", "Central Clinic", 1, &eligibility.Vitals{
		WeightKG:          &weight,
		Hemoglobin:        &hb,
		ChronicConditions: true,
	})

	require.NoError(t, err)
	// weight<50 (+25), hemoglobin<12.5 (+25), chronic (+20)
	assert.Equal(t, 70, result.Record.RiskScore)
	assert.NotEmpty(t, result.Assessment.Flags)
}

func TestSubmitWalkIn_DuplicatePending(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "O+")

	first, err := f.svc.SubmitWalkIn(context.Background(), "d1", "Central Clinic", 1, nil)
	require.NoError(t, err)

	_, err = f.svc.SubmitWalkIn(context.Background(), "d1", "North Branch", 1, nil)

	require.True(t, dErrors.Is(err, dErrors.CodePendingExists))
	var dErr *dErrors.DomainError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, first.Record.ID, dErr.Details["record_id"])
}

func TestSubmitWalkIn_DonorInsideBuffer(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "O+")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	// A completed donation ten days ago blocks a new submission.
	require.NoError(t, f.records.Create(ctx, &DonationRecord{
		ID:                 "prev",
		DonorID:            "d1",
		BloodGroup:         "O+",
		UnitsRequested:     1,
		DonationCenter:     "Central Clinic",
		DonationDate:       testNow.AddDate(0, 0, -10),
		Status:             StatusCompleted,
		VerificationStatus: VerificationAdminApproved,
	}))

	_, err := f.svc.SubmitWalkIn(ctx, "d1", "Central Clinic", 1, nil)

	require.True(t, dErrors.Is(err, dErrors.CodeNotEligible))
	var dErr *dErrors.DomainError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, eligibility.BufferDays-10, dErr.Details["days_remaining"])
}

func TestSubmitWalkIn_Validation(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "O+")
	ctx := context.Background()

	tests := []struct {
		name   string
		center string
		units  int
	}{
		{"zero units", "Central Clinic", 0},
		{"too many units", "Central Clinic", MaxUnitsPerDonation + 1},
		{"missing center", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitWalkIn(ctx, "d1", tt.center, tt.units, nil)
			assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
		})
	}
}

func TestSubmitWalkIn_UnknownDonor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitWalkIn(context.Background(), "ghost", "Central Clinic", 1, nil)

	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestSchedule_CreatesScheduledRecord(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "AB+")
	ctx := requestcontext.WithTime(context.Background(), testNow)
	slot := "10:30"

	record, err := f.svc.Schedule(ctx, "d1", "North Branch", testNow.AddDate(0, 0, 7), &slot)

	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, record.Status)
	assert.Equal(t, VerificationAIVerified, record.VerificationStatus)
	require.NotNil(t, record.ScheduledTime)
	assert.Equal(t, "10:30", *record.ScheduledTime)
}

func TestSchedule_RejectsPastDate(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "AB+")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	_, err := f.svc.Schedule(ctx, "d1", "North Branch", testNow.AddDate(0, 0, -1), nil)

	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestSchedule_BlocksSecondOpenRecord(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "AB+")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	_, err := f.svc.Schedule(ctx, "d1", "North Branch", testNow.AddDate(0, 0, 3), nil)
	require.NoError(t, err)

	_, err = f.svc.SubmitWalkIn(ctx, "d1", "Central Clinic", 1, nil)

	assert.True(t, dErrors.Is(err, dErrors.CodePendingExists))
}

func TestSubmitPast_RecordsCompletedAndFeedsInventory(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A-")
	ctx := requestcontext.WithTime(context.Background(), testNow)
	donated := testNow.AddDate(0, 0, -30)

	record, err := f.svc.SubmitPast(ctx, "d1", "Mobile Drive", donated, 2)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, record.Status)
	assert.Equal(t, VerificationAIVerified, record.VerificationStatus)

	batches, err := f.batches.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, inventory.BloodGroup("A-"), batches[0].BloodGroup)
	assert.Equal(t, 2, batches[0].UnitsAvailable)
	assert.Equal(t, record.ID, batches[0].SourceDonationID)
	assert.Equal(t, donated.AddDate(0, 0, inventory.ShelfLifeDays), batches[0].ExpiryDate)
}

func TestSubmitPast_WindowBounds(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A-")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	tests := []struct {
		name string
		date time.Time
		ok   bool
	}{
		{"today", testNow, true},
		{"window edge", testNow.AddDate(0, 0, -PastDonationWindowDays), true},
		{"beyond window", testNow.AddDate(0, 0, -PastDonationWindowDays-1), false},
		{"in the future", testNow.AddDate(0, 0, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh := newFixture(t)
			fresh.seedDonor("d1", "A-")
			_, err := fresh.svc.SubmitPast(ctx, "d1", "Mobile Drive", tt.date, 1)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, dErrors.Is(err, dErrors.CodeInvalidDateRange))
			}
		})
	}
}

func TestSubmitPast_StartsBufferClock(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A-")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	_, err := f.svc.SubmitPast(ctx, "d1", "Mobile Drive", testNow.AddDate(0, 0, -5), 1)
	require.NoError(t, err)

	_, err = f.svc.SubmitWalkIn(ctx, "d1", "Central Clinic", 1, nil)

	assert.True(t, dErrors.Is(err, dErrors.CodeNotEligible))
}

func TestProcessDecision_Approve(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A+")
	record := f.seedPending(t, "d1", 20)
	ctx := adminCtx(testNow)

	updated, err := f.svc.ProcessDecision(ctx, record.ID, ActionApprove, "", false)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.Equal(t, VerificationAdminApproved, updated.VerificationStatus)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, "admin-1", *updated.ApprovedBy)
	require.NotNil(t, updated.ApprovedAt)
	assert.Equal(t, testNow, *updated.ApprovedAt)

	batches, err := f.batches.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, record.ID, batches[0].SourceDonationID)
	assert.Equal(t, record.UnitsRequested, batches[0].UnitsAvailable)

	require.Len(t, f.notifier.sent, 1)
	assert.True(t, f.notifier.sent[0].Approved)
}

func TestProcessDecision_Reject(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A+")
	record := f.seedPending(t, "d1", 20)
	ctx := adminCtx(testNow)

	updated, err := f.svc.ProcessDecision(ctx, record.ID, ActionReject, "hemoglobin retest required", false)

	require.NoError(t, err)
	assert.Equal(t, StatusRejected, updated.Status)
	assert.Equal(t, VerificationRejected, updated.VerificationStatus)
	require.NotNil(t, updated.AdminNotes)
	assert.Equal(t, "hemoglobin retest required", *updated.AdminNotes)

	batches, err := f.batches.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, batches, "rejection must not touch inventory")

	require.Len(t, f.notifier.sent, 1)
	assert.False(t, f.notifier.sent[0].Approved)
}

func TestProcessDecision_RejectRequiresNotes(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A+")
	record := f.seedPending(t, "d1", 20)

	_, err := f.svc.ProcessDecision(adminCtx(testNow), record.ID, ActionReject, "", false)

	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestProcessDecision_SecondDecisionFails(t *testing.T) {
	orderings := []struct {
		name          string
		first, second DecisionAction
	}{
		{"approve then reject", ActionApprove, ActionReject},
		{"reject then approve", ActionReject, ActionApprove},
		{"approve twice", ActionApprove, ActionApprove},
	}
	for _, tt := range orderings {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedDonor("d1", "A+")
			record := f.seedPending(t, "d1", 20)
			ctx := adminCtx(testNow)

			_, err := f.svc.ProcessDecision(ctx, record.ID, tt.first, "first decision", false)
			require.NoError(t, err)

			_, err = f.svc.ProcessDecision(ctx, record.ID, tt.second, "second decision", false)
			assert.True(t, dErrors.Is(err, dErrors.CodeAlreadyProcessed))

			batches, listErr := f.batches.List(ctx, "")
			require.NoError(t, listErr)
			want := 0
			if tt.first == ActionApprove {
				want = 1
			}
			assert.Len(t, batches, want, "exactly one batch per approval, never more")
		})
	}
}

func TestProcessDecision_RiskThreshold(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A+")
	record := f.seedPending(t, "d1", eligibility.RiskThreshold+15)
	ctx := adminCtx(testNow)

	_, err := f.svc.ProcessDecision(ctx, record.ID, ActionApprove, "", false)
	require.True(t, dErrors.Is(err, dErrors.CodeRiskThreshold))

	_, err = f.svc.ProcessDecision(ctx, record.ID, ActionApprove, "", true)
	require.True(t, dErrors.Is(err, dErrors.CodeBadRequest), "override without a reason must fail")

	updated, err := f.svc.ProcessDecision(ctx, record.ID, ActionApprove, "reviewed labs with physician", true)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	require.NotNil(t, updated.AdminNotes)
	assert.Equal(t, "risk override: reviewed labs with physician", *updated.AdminNotes)
}

func TestProcessDecision_ThresholdScoreNeedsNoOverride(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A+")
	record := f.seedPending(t, "d1", eligibility.RiskThreshold)

	updated, err := f.svc.ProcessDecision(adminCtx(testNow), record.ID, ActionApprove, "", false)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestProcessDecision_ApprovesScheduledRecord(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "B+")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	record, err := f.svc.Schedule(ctx, "d1", "North Branch", testNow.AddDate(0, 0, 2), nil)
	require.NoError(t, err)

	updated, err := f.svc.ProcessDecision(adminCtx(testNow), record.ID, ActionApprove, "", false)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestProcessDecision_MissingBloodGroupSkipsInventory(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A+")
	record := &DonationRecord{
		ID:             "rec-no-group",
		DonorID:        "d1",
		BloodGroup:     "",
		UnitsRequested: 1,
		DonationCenter: "Central Clinic",
		DonationDate:   testNow.AddDate(0, 0, -1),
		Status:         StatusPendingAdminApproval,
	}
	require.NoError(t, f.records.Create(context.Background(), record))
	ctx := adminCtx(testNow)

	updated, err := f.svc.ProcessDecision(ctx, record.ID, ActionApprove, "", false)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	batches, err := f.batches.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, batches)

	var skipped bool
	for _, e := range f.audit.All() {
		if e.Action == audit.ActionInventorySkipped {
			skipped = true
		}
	}
	assert.True(t, skipped, "skipped mutation must leave an audit flag")
}

func TestProcessDecision_UnknownActionAndRecord(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "A+")
	record := f.seedPending(t, "d1", 20)
	ctx := adminCtx(testNow)

	_, err := f.svc.ProcessDecision(ctx, record.ID, DecisionAction("defer"), "", false)
	assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))

	_, err = f.svc.ProcessDecision(ctx, "missing", ActionApprove, "", false)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestApprovedWalkInStartsBufferClock(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "O-")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	result, err := f.svc.SubmitWalkIn(ctx, "d1", "Central Clinic", 1, nil)
	require.NoError(t, err)
	_, err = f.svc.ProcessDecision(adminCtx(testNow), result.Record.ID, ActionApprove, "", false)
	require.NoError(t, err)

	_, err = f.svc.SubmitWalkIn(ctx, "d1", "Central Clinic", 1, nil)
	require.True(t, dErrors.Is(err, dErrors.CodeNotEligible))

	later := requestcontext.WithTime(context.Background(), testNow.AddDate(0, 0, eligibility.BufferDays))
	_, err = f.svc.SubmitWalkIn(later, "d1", "Central Clinic", 1, nil)
	assert.NoError(t, err)
}

func TestListPendingAndHistory(t *testing.T) {
	f := newFixture(t)
	f.seedDonor("d1", "O+")
	f.seedDonor("d2", "A+")
	ctx := requestcontext.WithTime(context.Background(), testNow)

	first, err := f.svc.SubmitWalkIn(ctx, "d1", "Central Clinic", 1, nil)
	require.NoError(t, err)
	_, err = f.svc.SubmitWalkIn(ctx, "d2", "Central Clinic", 1, nil)
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.ProcessDecision(adminCtx(testNow), first.Record.ID, ActionReject, "deferred", false)
	require.NoError(t, err)

	pending, err = f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	history, err := f.svc.ListByDonor(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusRejected, history[0].Status)
}

func intPtr(v int) *int { return &v }
