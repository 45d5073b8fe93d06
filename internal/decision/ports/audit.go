package ports

import (
	"context"

	"creditrisk/pkg/platform/audit"
)

// AuditPort defines the interface for emitting audit events.
// This matches audit.Emitter but is declared here to keep the decision
// service independent of the publisher implementation.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}
