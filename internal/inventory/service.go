package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hemobank/internal/platform/metrics"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/sentinel"
	"hemobank/pkg/requestcontext"
)

// Service owns the blood inventory ledger. Every mutation goes through here;
// nothing writes the batch table directly.
type Service struct {
	store   Store
	cache   SummaryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(store Store, cache SummaryCache, m *metrics.Metrics, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NoopSummaryCache{}
	}
	return &Service{store: store, cache: cache, metrics: m, logger: logger}
}

// AddBatchParams describes the single way a batch enters the ledger.
type AddBatchParams struct {
	BloodGroup       BloodGroup
	Units            int
	DonationDate     time.Time
	Location         string
	SourceDonationID string
}

// AddBatch creates one new batch with expiry derived from the donation date.
// It never augments an existing row: each approved donation is its own batch
// so expiry-ordered consumption stays accurate.
func (s *Service) AddBatch(ctx context.Context, params AddBatchParams) (*Batch, error) {
	if !params.BloodGroup.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown blood group %q", params.BloodGroup)
	}
	if params.Units <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "batch units must be positive")
	}

	now := requestcontext.Now(ctx)
	seq, err := s.store.CountForGroupAndDate(ctx, params.BloodGroup, params.DonationDate)
	if err != nil {
		return nil, fmt.Errorf("sequence batch code: %w", err)
	}

	batch := &Batch{
		ID:               uuid.NewString(),
		Code:             batchCode(params.BloodGroup, params.DonationDate, seq+1),
		BloodGroup:       params.BloodGroup,
		UnitsAvailable:   params.Units,
		DonationDate:     params.DonationDate,
		ExpiryDate:       params.DonationDate.AddDate(0, 0, ShelfLifeDays),
		Location:         params.Location,
		SourceDonationID: params.SourceDonationID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Insert(ctx, batch); err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}

	if s.metrics != nil {
		s.metrics.BatchesCreated.Inc()
		s.metrics.UnitsAdded.Add(float64(params.Units))
	}
	s.cache.Invalidate(ctx)
	s.logger.InfoContext(ctx, "inventory batch created",
		"batch_code", batch.Code,
		"blood_group", batch.BloodGroup,
		"units", batch.UnitsAvailable,
		"expiry_date", batch.ExpiryDate.Format("2006-01-02"),
	)
	return batch, nil
}

// Consume deducts units for a blood group in ascending expiry order,
// partially draining a batch before moving to the next, to minimize wastage.
func (s *Service) Consume(ctx context.Context, group BloodGroup, units int) ([]Deduction, error) {
	if !group.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown blood group %q", group)
	}
	if units <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "units to consume must be positive")
	}

	now := requestcontext.Now(ctx)
	batches, err := s.store.ListUsable(ctx, group, now)
	if err != nil {
		return nil, fmt.Errorf("list usable batches: %w", err)
	}

	available := 0
	for _, b := range batches {
		available += b.UnitsAvailable
	}
	if available < units {
		return nil, dErrors.Newf(dErrors.CodeInsufficientUnits,
			"only %d units of %s available, %d requested", available, group, units).
			WithDetails(map[string]any{"available": available, "requested": units})
	}

	var deductions []Deduction
	remaining := units
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := b.UnitsAvailable
		if take > remaining {
			take = remaining
		}
		if err := s.store.DecrementUnits(ctx, b.ID, take, now); err != nil {
			if errors.Is(err, sentinel.ErrInsufficientUnits) {
				// Another consumer drained this batch between the read and
				// the guarded decrement; move to the next batch.
				continue
			}
			return nil, fmt.Errorf("decrement batch %s: %w", b.Code, err)
		}
		deductions = append(deductions, Deduction{BatchID: b.ID, Code: b.Code, Units: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil, dErrors.Newf(dErrors.CodeInsufficientUnits,
			"supply changed during consumption, %d units short", remaining)
	}

	if s.metrics != nil {
		s.metrics.UnitsConsumed.Add(float64(units))
	}
	s.cache.Invalidate(ctx)
	return deductions, nil
}

// Summary aggregates usable supply per blood group from the per-batch
// ledger, excluding expired batches. The full view is cached briefly.
func (s *Service) Summary(ctx context.Context, group BloodGroup) (*Summary, error) {
	if group != "" && !group.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown blood group %q", group)
	}

	if group == "" {
		if cached, ok := s.cache.Get(ctx); ok {
			if s.metrics != nil {
				s.metrics.SummaryCacheHits.Inc()
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.SummaryCacheMiss.Inc()
		}
	}

	now := requestcontext.Now(ctx)
	batches, err := s.store.List(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	byGroup := make(map[BloodGroup]*GroupSummary)
	for _, b := range batches {
		status := b.Status(now)
		if status == StatusExpired || b.UnitsAvailable == 0 {
			continue
		}
		gs, ok := byGroup[b.BloodGroup]
		if !ok {
			gs = &GroupSummary{BloodGroup: b.BloodGroup}
			byGroup[b.BloodGroup] = gs
		}
		gs.TotalUnits += b.UnitsAvailable
		gs.BatchCount++
		if status == StatusExpiringSoon || status == StatusCritical {
			gs.ExpiringUnits += b.UnitsAvailable
		}
	}

	summary := &Summary{GeneratedAt: now}
	for _, g := range BloodGroups {
		if group != "" && g != group {
			continue
		}
		if gs, ok := byGroup[g]; ok {
			summary.Groups = append(summary.Groups, *gs)
		} else {
			summary.Groups = append(summary.Groups, GroupSummary{BloodGroup: g})
		}
	}

	if group == "" {
		s.cache.Set(ctx, summary)
	}
	return summary, nil
}

// BatchView pairs a batch with its derived status for read endpoints.
type BatchView struct {
	Batch
	Status        BatchStatus `json:"status"`
	DaysRemaining int         `json:"days_remaining"`
}

// ListBatches returns batches with derived status, expiry asc.
func (s *Service) ListBatches(ctx context.Context, group BloodGroup) ([]BatchView, error) {
	if group != "" && !group.Valid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown blood group %q", group)
	}
	now := requestcontext.Now(ctx)
	batches, err := s.store.List(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	views := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		views = append(views, BatchView{
			Batch:         b,
			Status:        b.Status(now),
			DaysRemaining: b.DaysRemaining(now),
		})
	}
	return views, nil
}

func batchCode(group BloodGroup, date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%03d", group, date.Format("20060102"), seq)
}
