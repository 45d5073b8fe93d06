package ports

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// NoticeArchive stores rendered adverse-action notices by request id.
// Open returns sentinel.ErrNotFound for unknown ids.
type NoticeArchive interface {
	Save(ctx context.Context, requestID uuid.UUID, text string) error
	Open(ctx context.Context, requestID uuid.UUID) (io.ReadCloser, error)
}
