// Package admin serves operator-only views over the decision audit trail.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "creditrisk/pkg/domain-errors"
	"creditrisk/pkg/platform/audit"
	"creditrisk/pkg/platform/httputil"
	"creditrisk/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Trail reads back audit events.
type Trail interface {
	List(ctx context.Context, requestID string) ([]audit.Event, error)
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
	Dropped() uint64
}

type Handler struct {
	trail   Trail
	emitter audit.Emitter
	logger  *slog.Logger
}

// New builds the admin handler. Reads of the trail are themselves audited
// through emitter when it is non-nil.
func New(trail Trail, emitter audit.Emitter, logger *slog.Logger) *Handler {
	return &Handler{trail: trail, emitter: emitter, logger: logger}
}

// Register mounts admin endpoints. Callers guard the router with admin auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/events", h.HandleListEvents)
}

// HandleListEvents handles GET /audit/events?request_id=&limit=.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var events []audit.Event
	if filter := r.URL.Query().Get("request_id"); filter != "" {
		events, err = h.trail.List(ctx, filter)
		if len(events) > limit {
			events = events[:limit]
		}
	} else {
		events, err = h.trail.Recent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit trail",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}

	h.recordAccess(ctx, requestID)

	resp := &AuditEventsResponse{
		Events:  make([]*AuditEventResponse, 0, len(events)),
		Total:   len(events),
		Dropped: h.trail.Dropped(),
	}
	for _, e := range events {
		resp.Events = append(resp.Events, toEventResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) recordAccess(ctx context.Context, requestID string) {
	if h.emitter == nil {
		return
	}
	err := h.emitter.Emit(ctx, audit.Event{
		Action:    string(audit.EventAuditLogAccessed),
		RequestID: requestID,
		Subject:   requestcontext.ClientIP(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event",
			"action", audit.EventAuditLogAccessed,
			"request_id", requestID,
			"error", err,
		)
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid limit").WithFields(dErrors.FieldError{
			Field:  "limit",
			Reason: "must be an integer between 1 and " + strconv.Itoa(maxLimit),
		})
	}
	return n, nil
}
