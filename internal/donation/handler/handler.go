package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hemobank/internal/donation"
	"hemobank/internal/eligibility"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/httputil"
	"hemobank/pkg/requestcontext"
)

// Service defines the donation operations the transport layer needs.
type Service interface {
	SubmitWalkIn(ctx context.Context, donorID, center string, units int, vitals *eligibility.Vitals) (*donation.SubmitResult, error)
	Schedule(ctx context.Context, donorID, center string, date time.Time, timeSlot *string) (*donation.DonationRecord, error)
	SubmitPast(ctx context.Context, donorID, center string, date time.Time, units int) (*donation.DonationRecord, error)
	ProcessDecision(ctx context.Context, recordID string, action donation.DecisionAction, notes string, override bool) (*donation.DonationRecord, error)
	ListByDonor(ctx context.Context, donorID string) ([]donation.DonationRecord, error)
	ListPending(ctx context.Context) ([]donation.DonationRecord, error)
	CheckEligibility(ctx context.Context, donorID string) (eligibility.Eligibility, error)
}

// Handler wires donation endpoints to the donation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a donation handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the donor-facing endpoints. The router group must carry
// donor authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donations/walk-in", h.HandleWalkIn)
	r.Post("/donations/schedule", h.HandleSchedule)
	r.Post("/donations/past", h.HandlePast)
	r.Get("/donations", h.HandleHistory)
	r.Get("/donations/eligibility", h.HandleEligibility)
}

// RegisterAdmin mounts the review endpoints. The router group must carry
// admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/donations/pending", h.HandlePending)
	r.Post("/admin/donations/{id}/decision", h.HandleDecision)
}

// HandleWalkIn handles POST /donations/walk-in.
func (h *Handler) HandleWalkIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[WalkInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitWalkIn(ctx, donorID, req.DonationCenter, req.Units, req.Vitals)
	if err != nil {
		h.logError(ctx, "walk-in submission failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "walk-in donation submitted",
		"request_id", requestID,
		"donor_id", donorID,
		"record_id", result.Record.ID,
		"risk_score", result.Assessment.RiskScore,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSubmitResult(result))
}

// HandleSchedule handles POST /donations/schedule.
func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScheduleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Schedule(ctx, donorID, req.DonationCenter, req.ParsedDate(), req.ScheduledTime)
	if err != nil {
		h.logError(ctx, "donation scheduling failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donation scheduled",
		"request_id", requestID,
		"donor_id", donorID,
		"record_id", record.ID,
		"donation_date", record.DonationDate.Format("2006-01-02"),
	)
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandlePast handles POST /donations/past.
func (h *Handler) HandlePast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PastRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.SubmitPast(ctx, donorID, req.DonationCenter, req.ParsedDate(), req.Units)
	if err != nil {
		h.logError(ctx, "past donation entry failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "past donation recorded",
		"request_id", requestID,
		"donor_id", donorID,
		"record_id", record.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleHistory handles GET /donations.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}
	records, err := h.service.ListByDonor(ctx, donorID)
	if err != nil {
		h.logError(ctx, "donation history listing failed", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}

// HandleEligibility handles GET /donations/eligibility.
func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	donorID, ok := h.requireDonor(w, ctx)
	if !ok {
		return
	}
	result, err := h.service.CheckEligibility(ctx, donorID)
	if err != nil {
		h.logError(ctx, "eligibility check failed", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandlePending handles GET /admin/donations/pending.
func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.ListPending(ctx)
	if err != nil {
		h.logError(ctx, "pending queue listing failed", requestcontext.RequestID(ctx), err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}

// HandleDecision handles POST /admin/donations/{id}/decision.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	recordID := chi.URLParam(r, "id")
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.ProcessDecision(ctx, recordID, req.ParsedAction(), req.Notes, req.Override)
	if err != nil {
		h.logError(ctx, "decision processing failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "donation decision processed",
		"request_id", requestID,
		"admin_id", requestcontext.AdminID(ctx),
		"record_id", record.ID,
		"action", req.Action,
		"status", record.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) requireDonor(w http.ResponseWriter, ctx context.Context) (string, bool) {
	donorID := requestcontext.DonorID(ctx)
	if donorID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return donorID, true
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestID,
		"error", err,
	)
}
