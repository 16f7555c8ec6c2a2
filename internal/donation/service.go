package donation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hemobank/internal/audit"
	"hemobank/internal/eligibility"
	"hemobank/internal/inventory"
	"hemobank/internal/notify"
	"hemobank/internal/platform/metrics"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/platform/tx"
	"hemobank/pkg/requestcontext"
)

// EligibilityService answers whether a donor may submit right now.
type EligibilityService interface {
	Check(ctx context.Context, donorID string) (eligibility.Eligibility, error)
	Profile(ctx context.Context, donorID string) (*eligibility.DonorProfile, error)
}

// Ledger is the single entry point into the blood inventory. Approvals must
// not touch batch storage any other way.
type Ledger interface {
	AddBatch(ctx context.Context, params inventory.AddBatchParams) (*inventory.Batch, error)
}

// AuditTrail records lifecycle events.
type AuditTrail interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service governs the donation record lifecycle: submission, scheduling,
// historical entry, and the admin decision that ties a completed record to
// exactly one inventory mutation.
type Service struct {
	store    Store
	elig     EligibilityService
	ledger   Ledger
	auditor  AuditTrail
	notifier notify.Notifier
	txRunner tx.Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(
	store Store,
	elig EligibilityService,
	ledger Ledger,
	auditor AuditTrail,
	notifier notify.Notifier,
	txRunner tx.Runner,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Service{
		store:    store,
		elig:     elig,
		ledger:   ledger,
		auditor:  auditor,
		notifier: notifier,
		txRunner: txRunner,
		metrics:  m,
		logger:   logger,
	}
}

// SubmitResult pairs the created record with the risk assessment computed at
// submission time. The assessment flags are ephemeral; only the score is
// persisted.
type SubmitResult struct {
	Record     *DonationRecord        `json:"record"`
	Assessment eligibility.Assessment `json:"assessment"`
}

// SubmitWalkIn creates a pending_admin_approval record for a walk-in donor.
func (s *Service) SubmitWalkIn(ctx context.Context, donorID, center string, units int, vitals *eligibility.Vitals) (*SubmitResult, error) {
	if err := validateSubmission(donorID, center, units); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	if err := s.requireEligible(ctx, donorID, "walk_in"); err != nil {
		return nil, err
	}
	if err := s.requireNoOpenRecord(ctx, donorID, "walk_in"); err != nil {
		return nil, err
	}

	profile, err := s.elig.Profile(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("load donor profile: %w", err)
	}

	assessment, err := s.assess(ctx, donorID, vitals, now)
	if err != nil {
		return nil, err
	}

	record := &DonationRecord{
		ID:                 uuid.NewString(),
		DonorID:            donorID,
		BloodGroup:         donorBloodGroup(profile),
		UnitsRequested:     units,
		DonationCenter:     center,
		DonationDate:       now,
		Status:             StatusPendingAdminApproval,
		VerificationStatus: VerificationAIVerified,
		RiskScore:          assessment.RiskScore,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.create(ctx, record, "walk_in"); err != nil {
		return nil, err
	}

	s.count("walk_in", "accepted")
	if s.metrics != nil {
		s.metrics.RiskScore.Observe(float64(assessment.RiskScore))
	}
	s.emit(ctx, donorID, record.ID, audit.ActionSubmitted,
		fmt.Sprintf("risk_score=%d units=%d", assessment.RiskScore, units))

	return &SubmitResult{Record: record, Assessment: assessment}, nil
}

// Schedule creates a scheduled record for a future appointment.
func (s *Service) Schedule(ctx context.Context, donorID, center string, date time.Time, timeSlot *string) (*DonationRecord, error) {
	if err := validateSubmission(donorID, center, MinUnitsPerDonation); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if dateOnly(date).Before(dateOnly(now)) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "scheduled date cannot be in the past")
	}

	if err := s.requireEligible(ctx, donorID, "scheduled"); err != nil {
		return nil, err
	}
	if err := s.requireNoOpenRecord(ctx, donorID, "scheduled"); err != nil {
		return nil, err
	}

	profile, err := s.elig.Profile(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("load donor profile: %w", err)
	}

	record := &DonationRecord{
		ID:                 uuid.NewString(),
		DonorID:            donorID,
		BloodGroup:         donorBloodGroup(profile),
		UnitsRequested:     MinUnitsPerDonation,
		DonationCenter:     center,
		DonationDate:       date,
		ScheduledTime:      timeSlot,
		Status:             StatusScheduled,
		VerificationStatus: VerificationAIVerified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.create(ctx, record, "scheduled"); err != nil {
		return nil, err
	}

	s.count("scheduled", "accepted")
	s.emit(ctx, donorID, record.ID, audit.ActionScheduled,
		fmt.Sprintf("date=%s center=%s", date.Format("2006-01-02"), center))
	return record, nil
}

// SubmitPast records a donation that already happened elsewhere. It enters
// the terminal completed state directly, still feeds the inventory ledger,
// and starts the donor's buffer clock, but skips the buffer check itself:
// the donation is historical fact, not a request.
func (s *Service) SubmitPast(ctx context.Context, donorID, center string, date time.Time, units int) (*DonationRecord, error) {
	if err := validateSubmission(donorID, center, units); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	earliest := dateOnly(now).AddDate(0, 0, -PastDonationWindowDays)
	if dateOnly(date).Before(earliest) || dateOnly(date).After(dateOnly(now)) {
		return nil, dErrors.Newf(dErrors.CodeInvalidDateRange,
			"donation date must be within the last %d days", PastDonationWindowDays).
			WithDetails(map[string]any{
				"earliest": earliest.Format("2006-01-02"),
				"latest":   dateOnly(now).Format("2006-01-02"),
			})
	}

	profile, err := s.elig.Profile(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("load donor profile: %w", err)
	}
	if profile == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "donor not found")
	}

	record := &DonationRecord{
		ID:                 uuid.NewString(),
		DonorID:            donorID,
		BloodGroup:         donorBloodGroup(profile),
		UnitsRequested:     units,
		DonationCenter:     center,
		DonationDate:       date,
		Status:             StatusCompleted,
		VerificationStatus: VerificationAIVerified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.txRunner.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, record); err != nil {
			return fmt.Errorf("create past donation record: %w", err)
		}
		return s.reconcile(txCtx, record)
	})
	if err != nil {
		return nil, err
	}

	s.count("past", "accepted")
	s.emit(ctx, donorID, record.ID, audit.ActionPastRecorded,
		fmt.Sprintf("date=%s units=%d", date.Format("2006-01-02"), units))
	return record, nil
}

// ProcessDecision applies an admin approve/reject to an open record. The
// status transition and the inventory mutation commit or roll back together;
// the open-state guard in the store makes retries fail with AlreadyProcessed
// instead of producing a second batch.
func (s *Service) ProcessDecision(ctx context.Context, recordID string, action DecisionAction, notes string, override bool) (*DonationRecord, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown decision action %q", action)
	}

	record, err := s.store.Get(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation record not found")
		}
		return nil, fmt.Errorf("load donation record: %w", err)
	}
	if record.Status.Terminal() {
		return nil, dErrors.Newf(dErrors.CodeAlreadyProcessed,
			"donation record is already %s", record.Status)
	}

	now := requestcontext.Now(ctx)
	adminID := requestcontext.AdminID(ctx)

	switch action {
	case ActionApprove:
		if record.RiskScore > eligibility.RiskThreshold {
			if !override {
				return nil, dErrors.Newf(dErrors.CodeRiskThreshold,
					"risk score %d exceeds the approval threshold of %d", record.RiskScore, eligibility.RiskThreshold).
					WithDetails(map[string]any{"risk_score": record.RiskScore, "threshold": eligibility.RiskThreshold})
			}
			if notes == "" {
				return nil, dErrors.New(dErrors.CodeBadRequest, "a documented reason is required to override the risk threshold")
			}
			notes = "risk override: " + notes
		}
		record.Status = StatusCompleted
		record.VerificationStatus = VerificationAdminApproved
		record.ApprovedBy = &adminID
		record.ApprovedAt = &now
	case ActionReject:
		if notes == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "a rejection reason is required")
		}
		record.Status = StatusRejected
		record.VerificationStatus = VerificationRejected
	}
	if notes != "" {
		record.AdminNotes = &notes
	}
	record.UpdatedAt = now

	err = s.txRunner.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.store.UpdateDecision(txCtx, record); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "donation record not found")
			case errors.Is(err, sentinel.ErrInvalidState):
				return dErrors.New(dErrors.CodeAlreadyProcessed, "donation record was already processed")
			}
			return fmt.Errorf("update decision: %w", err)
		}
		if action == ActionApprove {
			return s.reconcile(txCtx, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterDecision(ctx, record, action, notes)
	return record, nil
}

// Get returns a single record.
func (s *Service) Get(ctx context.Context, id string) (*DonationRecord, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "donation record not found")
		}
		return nil, fmt.Errorf("get donation record: %w", err)
	}
	return record, nil
}

// ListByDonor returns the donor's full donation history, newest first.
func (s *Service) ListByDonor(ctx context.Context, donorID string) ([]DonationRecord, error) {
	return s.store.ListByDonor(ctx, donorID)
}

// ListPending returns the admin review queue.
func (s *Service) ListPending(ctx context.Context) ([]DonationRecord, error) {
	return s.store.ListByStatus(ctx, StatusPendingAdminApproval)
}

// CheckEligibility is a read-through to the eligibility service.
func (s *Service) CheckEligibility(ctx context.Context, donorID string) (eligibility.Eligibility, error) {
	return s.elig.Check(ctx, donorID)
}

// reconcile ties a completed record to exactly one batch addition. A record
// without a blood group cannot feed inventory; the gap is flagged loudly
// instead of silently approving with no ledger effect.
func (s *Service) reconcile(ctx context.Context, record *DonationRecord) error {
	if !record.BloodGroup.Valid() {
		if s.metrics != nil {
			s.metrics.ReconcileSkipped.Inc()
		}
		s.logger.WarnContext(ctx, "approval recorded without inventory mutation: donor blood group unknown",
			"record_id", record.ID,
			"donor_id", record.DonorID,
		)
		s.emit(ctx, record.DonorID, record.ID, audit.ActionInventorySkipped, "donor blood group unknown")
		return nil
	}

	_, err := s.ledger.AddBatch(ctx, inventory.AddBatchParams{
		BloodGroup:       record.BloodGroup,
		Units:            record.UnitsRequested,
		DonationDate:     record.DonationDate,
		Location:         record.DonationCenter,
		SourceDonationID: record.ID,
	})
	if err != nil {
		return fmt.Errorf("add inventory batch for donation %s: %w", record.ID, err)
	}
	return nil
}

func (s *Service) afterDecision(ctx context.Context, record *DonationRecord, action DecisionAction, notes string) {
	outcome := audit.ActionApproved
	if action == ActionReject {
		outcome = audit.ActionRejected
	}
	if s.metrics != nil {
		s.metrics.DecisionsTotal.WithLabelValues(string(action), "ok").Inc()
	}
	s.emit(ctx, requestcontext.AdminID(ctx), record.ID, outcome, notes)

	profile, err := s.elig.Profile(ctx, record.DonorID)
	if err != nil || profile == nil {
		s.logger.WarnContext(ctx, "skipping decision notification: donor profile unavailable",
			"record_id", record.ID,
			"error", err,
		)
		return
	}
	s.notifier.DecisionMade(ctx, notify.Decision{
		DonorName:  profile.Name,
		DonorEmail: profile.Email,
		Approved:   action == ActionApprove,
		Reason:     notes,
	})
}

// assess scores the submitted vitals, filling in days-since-last-donation
// from the donor's history so the frequency factor reflects the record of
// truth rather than self-reported data.
func (s *Service) assess(ctx context.Context, donorID string, vitals *eligibility.Vitals, now time.Time) (eligibility.Assessment, error) {
	if vitals == nil {
		return eligibility.Assessment{}, nil
	}
	v := *vitals
	last, err := s.store.LastApprovedCompletion(ctx, donorID)
	if err != nil {
		return eligibility.Assessment{}, fmt.Errorf("load donation history: %w", err)
	}
	if last != nil {
		days := eligibility.DaysSince(*last, now)
		v.DaysSinceLastDonation = &days
	} else {
		v.DaysSinceLastDonation = nil
	}
	return eligibility.Score(v), nil
}

func (s *Service) requireEligible(ctx context.Context, donorID, submissionType string) error {
	result, err := s.elig.Check(ctx, donorID)
	if err != nil {
		return err
	}
	if !result.Eligible {
		s.count(submissionType, "not_eligible")
		details := map[string]any{"reason": result.Reason}
		if result.NextEligibleDate != nil {
			details["days_remaining"] = result.DaysRemaining
			details["next_eligible_date"] = result.NextEligibleDate.Format("2006-01-02")
		}
		return dErrors.New(dErrors.CodeNotEligible, result.Reason).WithDetails(details)
	}
	return nil
}

func (s *Service) requireNoOpenRecord(ctx context.Context, donorID, submissionType string) error {
	existing, err := s.store.FindOpenByDonor(ctx, donorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("check open records: %w", err)
	}
	s.count(submissionType, "pending_exists")
	return pendingExists(existing)
}

// create persists the record, translating a lost race on the open-record
// constraint into the same PendingExists the pre-check produces.
func (s *Service) create(ctx context.Context, record *DonationRecord, submissionType string) error {
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.count(submissionType, "pending_exists")
			if existing, findErr := s.store.FindOpenByDonor(ctx, record.DonorID); findErr == nil {
				return pendingExists(existing)
			}
			return dErrors.New(dErrors.CodePendingExists, "you already have an open donation request")
		}
		return fmt.Errorf("create donation record: %w", err)
	}
	return nil
}

func (s *Service) count(submissionType, outcome string) {
	if s.metrics != nil {
		s.metrics.SubmissionsTotal.WithLabelValues(submissionType, outcome).Inc()
	}
}

func (s *Service) emit(ctx context.Context, actor, subject, action, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		Actor:   actor,
		Subject: subject,
		Action:  action,
		Detail:  detail,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func pendingExists(existing *DonationRecord) error {
	return dErrors.New(dErrors.CodePendingExists,
		"you already have an open donation request").
		WithDetails(map[string]any{
			"record_id":  existing.ID,
			"status":     existing.Status,
			"created_at": existing.CreatedAt,
		})
}

func validateSubmission(donorID, center string, units int) error {
	if donorID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "donor id is required")
	}
	if center == "" {
		return dErrors.New(dErrors.CodeBadRequest, "donation center is required")
	}
	if units < MinUnitsPerDonation || units > MaxUnitsPerDonation {
		return dErrors.Newf(dErrors.CodeBadRequest,
			"units must be between %d and %d", MinUnitsPerDonation, MaxUnitsPerDonation)
	}
	return nil
}

func donorBloodGroup(profile *eligibility.DonorProfile) inventory.BloodGroup {
	if profile == nil {
		return ""
	}
	return inventory.BloodGroup(profile.BloodGroup)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
