package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"creditrisk/internal/application"
	"creditrisk/internal/decision"
	"creditrisk/internal/scoring"
	dErrors "creditrisk/pkg/domain-errors"
	"creditrisk/pkg/platform/httputil"
	"creditrisk/pkg/requestcontext"
)

// Service defines the interface for decision operations.
type Service interface {
	Assess(ctx context.Context, app *application.Application, mode application.Mode) (*decision.Assessment, error)
	AssessBatch(ctx context.Context, items []decision.BatchItem) (*decision.BatchResult, error)
	Explain(ctx context.Context, app *application.Application, mode application.Mode, strategy scoring.Strategy) (*decision.ExplainResult, error)
	OpenNotice(ctx context.Context, requestID uuid.UUID) (io.ReadCloser, error)
	ModelInfo() (scoring.Info, bool)
	Policy() *decision.Policy
	Health() decision.Health
}

// Handler wires decision endpoints to the decision service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a decision handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts every decision endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	h.RegisterScoring(r)
	h.RegisterReadOnly(r)
}

// RegisterScoring mounts the endpoints that run the model. These are the
// ones subject to API-key quotas.
func (h *Handler) RegisterScoring(r chi.Router) {
	r.Post("/assess", h.HandleAssess)
	r.Post("/quick-check", h.HandleQuickCheck)
	r.Post("/batch-assess", h.HandleBatch)
	r.Post("/explain", h.HandleExplain)
}

// RegisterReadOnly mounts lookups and service metadata.
func (h *Handler) RegisterReadOnly(r chi.Router) {
	r.Get("/notices/{request_id}", h.HandleNotice)
	r.Get("/health", h.HandleHealth)
	r.Get("/model-info", h.HandleModelInfo)
	r.Get("/application-fields", h.HandleFields)
}

// HandleAssess handles POST /assess requests.
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	h.handleAssess(w, r, application.ModeFull)
}

// HandleQuickCheck handles POST /quick-check requests.
func (h *Handler) HandleQuickCheck(w http.ResponseWriter, r *http.Request) {
	h.handleAssess(w, r, application.ModeQuick)
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request, mode application.Mode) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	app, ok := httputil.DecodeAndPrepare[application.Application](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Assess(ctx, app, mode)
	if err != nil {
		h.logFailure(ctx, "assessment failed", requestID, err, "mode", mode)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "application assessed",
		"request_id", requestID,
		"mode", mode,
		"decision", result.Decision.Label,
		"risk_grade", result.Decision.RiskGrade,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromAssessment(result))
}

// HandleBatch handles POST /batch-assess requests.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.AssessBatch(ctx, req.Items())
	if err != nil {
		h.logFailure(ctx, "batch assessment failed", requestID, err, "size", len(req.Applications))
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch assessed",
		"request_id", requestID,
		"size", len(result.Items),
		"approved", result.Approved,
		"declined", result.Declined,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromBatch(result))
}

// HandleExplain handles POST /explain requests. The optional strategy query
// parameter selects tree_shap or perturbation.
func (h *Handler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	var strategy scoring.Strategy
	if raw := r.URL.Query().Get("strategy"); raw != "" {
		s, ok := scoring.ParseStrategy(raw)
		if !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown explanation strategy").WithFields(dErrors.FieldError{
				Field:  "strategy",
				Reason: "must be one of tree_shap, perturbation",
			}))
			return
		}
		strategy = s
	}

	app, ok := httputil.DecodeAndPrepare[application.Application](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Explain(ctx, app, application.ModeFull, strategy)
	if err != nil {
		h.logFailure(ctx, "explanation failed", requestID, err, "strategy", strategy)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "explanation served",
		"request_id", requestID,
		"requested", result.Requested,
		"method", result.Explanation.Method,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromExplain(result))
}

// HandleNotice handles GET /notices/{request_id} requests.
func (h *Handler) HandleNotice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	noticeID, err := uuid.Parse(chi.URLParam(r, "request_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request_id must be a UUID"))
		return
	}

	rc, err := h.service.OpenNotice(ctx, noticeID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logFailure(ctx, "notice retrieval failed", requestID, err, "notice_id", noticeID)
		}
		httputil.WriteError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(ctx, "notice stream interrupted",
			"request_id", requestID,
			"notice_id", noticeID,
			"error", err,
		)
	}
}

// HandleHealth handles GET /health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromHealth(h.service.Health()))
}

// HandleModelInfo handles GET /model-info requests.
func (h *Handler) HandleModelInfo(w http.ResponseWriter, _ *http.Request) {
	info, ok := h.service.ModelInfo()
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "scoring model is not loaded"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromModelInfo(info, h.service.Policy()))
}

// HandleFields handles GET /application-fields requests.
func (h *Handler) HandleFields(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FieldCatalogue())
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error, attrs ...any) {
	args := append([]any{"request_id", requestID, "error", err}, attrs...)
	if de, ok := dErrors.As(err); ok && httputil.StatusFor(de.Code) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, args...)
		return
	}
	h.logger.ErrorContext(ctx, msg, args...)
}
