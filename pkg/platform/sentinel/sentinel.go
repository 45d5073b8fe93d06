package sentinel

import "errors"

// Infrastructure facts returned (optionally wrapped) by stores and archives.
// Services translate them into domain errors; validation problems use
// pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
