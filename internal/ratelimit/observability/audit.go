// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"

	"creditrisk/pkg/attrs"
	"creditrisk/pkg/platform/audit"
	"creditrisk/pkg/requestcontext"
)

// LogAudit logs an audit event to the structured logger and the audit
// publisher. Subject and reason are picked out of attrList.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher audit.Emitter, event audit.AuditEvent, attrList ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}

	if logger != nil {
		args := append(attrList, "event", string(event), "log_type", "audit")
		logger.InfoContext(ctx, string(event), args...)
	}

	if publisher == nil {
		return
	}
	err := publisher.Emit(ctx, audit.Event{
		Category:  event.Category(),
		Action:    string(event),
		RequestID: requestID,
		Subject:   attrs.FirstString(attrList, "tier", "api_key_id", "ip"),
		Reason:    attrs.FirstString(attrList, "reason"),
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}
