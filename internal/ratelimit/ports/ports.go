// Package ports defines shared interfaces for the ratelimit module.
package ports

//go:generate mockgen -destination=mocks/mocks.go -package=mocks creditrisk/internal/ratelimit/ports BucketStore

import (
	"context"
	"time"

	"creditrisk/internal/ratelimit/models"
	"creditrisk/pkg/platform/audit"
)

// AuditPublisher emits audit events for rejected and throttled requests.
type AuditPublisher = audit.Emitter

// BucketStore manages sliding window rate limit counters.
type BucketStore interface {
	// Allow checks if a single request is allowed and consumes one token if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// AllowN checks if 'cost' requests are allowed and consumes that many tokens if so.
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Reset clears the rate limit counter for a key.
	Reset(ctx context.Context, key string) error

	// GetCurrentCount returns the current request count in the window.
	GetCurrentCount(ctx context.Context, key string) (int, error)
}
