package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hemobank/internal/inventory"
	dErrors "hemobank/pkg/domain-errors"
	"hemobank/pkg/platform/httputil"
	"hemobank/pkg/requestcontext"
)

// Service defines the inventory operations the transport layer needs.
type Service interface {
	Summary(ctx context.Context, group inventory.BloodGroup) (*inventory.Summary, error)
	ListBatches(ctx context.Context, group inventory.BloodGroup) ([]inventory.BatchView, error)
	Consume(ctx context.Context, group inventory.BloodGroup, units int) ([]inventory.Deduction, error)
}

// Handler wires inventory endpoints to the inventory service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an inventory handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/inventory/summary", h.HandleSummary)
	r.Get("/inventory/batches", h.HandleBatches)
}

// RegisterAdmin mounts the mutation endpoints. The router group must carry
// admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/inventory/consume", h.HandleConsume)
}

// HandleSummary handles GET /inventory/summary?blood_group=A+.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.service.Summary(ctx, groupParam(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "inventory summary failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleBatches handles GET /inventory/batches?blood_group=A+.
func (h *Handler) HandleBatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.service.ListBatches(ctx, groupParam(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "inventory batch listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BatchesResponse{Batches: views, Count: len(views)})
}

// HandleConsume handles POST /admin/inventory/consume.
func (h *Handler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConsumeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	deductions, err := h.service.Consume(ctx, inventory.BloodGroup(req.BloodGroup), req.Units)
	if err != nil {
		h.logger.ErrorContext(ctx, "inventory consumption failed",
			"request_id", requestID,
			"blood_group", req.BloodGroup,
			"units", req.Units,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "inventory units consumed",
		"request_id", requestID,
		"admin_id", requestcontext.AdminID(ctx),
		"blood_group", req.BloodGroup,
		"units", req.Units,
		"batches", len(deductions),
	)
	httputil.WriteJSON(w, http.StatusOK, ConsumeResponse{Deductions: deductions, UnitsConsumed: req.Units})
}

func groupParam(r *http.Request) inventory.BloodGroup {
	return inventory.BloodGroup(strings.TrimSpace(r.URL.Query().Get("blood_group")))
}

// ConsumeRequest is the HTTP request body for POST /admin/inventory/consume.
type ConsumeRequest struct {
	BloodGroup string `json:"blood_group"`
	Units      int    `json:"units"`
}

func (r *ConsumeRequest) Validate() error {
	r.BloodGroup = strings.TrimSpace(r.BloodGroup)
	if r.BloodGroup == "" {
		return dErrors.New(dErrors.CodeBadRequest, "blood_group is required")
	}
	if r.Units <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "units must be positive")
	}
	return nil
}

// BatchesResponse is the HTTP response for batch listings.
type BatchesResponse struct {
	Batches []inventory.BatchView `json:"batches"`
	Count   int                   `json:"count"`
}

// ConsumeResponse is the HTTP response for a consumption request.
type ConsumeResponse struct {
	Deductions    []inventory.Deduction `json:"deductions"`
	UnitsConsumed int                   `json:"units_consumed"`
}
