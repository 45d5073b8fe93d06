// Package handler exposes the plan catalogue and quota administration.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"creditrisk/internal/ratelimit/models"
	dErrors "creditrisk/pkg/domain-errors"
	"creditrisk/pkg/platform/httputil"
	"creditrisk/pkg/requestcontext"
)

// Service defines the quota operations the handler needs.
type Service interface {
	Tiers() []models.TierLimit
	Window() time.Duration
	Usage(ctx context.Context, keyID string) (int, error)
	Reset(ctx context.Context, keyID string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public catalogue.
func (h *Handler) Register(r chi.Router) {
	r.Get("/pricing", h.HandlePricing)
}

// RegisterAdmin mounts quota administration. Callers guard it with admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/rate-limit/usage/{key_id}", h.HandleUsage)
	r.Post("/admin/rate-limit/reset", h.HandleReset)
}

// HandlePricing handles GET /pricing.
func (h *Handler) HandlePricing(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, models.NewPricingResponse(h.service.Tiers(), h.service.Window()))
}

// UsageResponse reports one key's consumption.
type UsageResponse struct {
	KeyID  string `json:"key_id"`
	Count  int    `json:"count"`
	Window string `json:"window"`
}

// HandleUsage handles GET /admin/rate-limit/usage/{key_id}.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyID := strings.TrimSpace(chi.URLParam(r, "key_id"))
	if keyID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "key_id is required"))
		return
	}

	count, err := h.service.Usage(ctx, keyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read quota usage",
			"request_id", requestcontext.RequestID(ctx),
			"key_id", keyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &UsageResponse{
		KeyID:  keyID,
		Count:  count,
		Window: h.service.Window().String(),
	})
}

// ResetRequest names the key whose window is cleared.
type ResetRequest struct {
	KeyID string `json:"key_id"`
}

func (req *ResetRequest) Validate() error {
	req.KeyID = strings.TrimSpace(req.KeyID)
	if req.KeyID == "" {
		return dErrors.New(dErrors.CodeValidation, "key_id is required").
			WithFields(dErrors.FieldError{Field: "key_id", Reason: "required"})
	}
	return nil
}

// HandleReset handles POST /admin/rate-limit/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ResetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Reset(ctx, req.KeyID); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset quota",
			"request_id", requestID,
			"key_id", req.KeyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "quota reset", "request_id", requestID, "key_id", req.KeyID)
	w.WriteHeader(http.StatusNoContent)
}
