package notice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"creditrisk/pkg/platform/sentinel"
)

// Archive stores rendered notices as files named by request id so they can
// be downloaded after the response. Each call opens and releases its own
// file handle.
type Archive struct {
	dir string
}

// NewArchive creates dir if needed.
func NewArchive(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create notice archive: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Save writes the notice text for requestID.
func (a *Archive) Save(_ context.Context, requestID uuid.UUID, text string) error {
	tmp, err := os.CreateTemp(a.dir, ".notice-*")
	if err != nil {
		return fmt.Errorf("save notice: %w", err)
	}
	if _, err := io.WriteString(tmp, text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save notice: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save notice: %w", err)
	}
	if err := os.Rename(tmp.Name(), a.path(requestID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save notice: %w", err)
	}
	return nil
}

// Open returns the archived notice for requestID. The caller must close it.
func (a *Archive) Open(_ context.Context, requestID uuid.UUID) (io.ReadCloser, error) {
	f, err := os.Open(a.path(requestID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open notice: %w", err)
	}
	return f, nil
}

func (a *Archive) path(requestID uuid.UUID) string {
	return filepath.Join(a.dir, "adverse_notice_"+requestID.String()+".txt")
}
