// Package middleware enforces API-key quotas on HTTP routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"creditrisk/internal/ratelimit/models"
	"creditrisk/internal/ratelimit/observability"
	"creditrisk/internal/ratelimit/ports"
	dErrors "creditrisk/pkg/domain-errors"
	"creditrisk/pkg/platform/audit"
	"creditrisk/pkg/platform/httputil"
	"creditrisk/pkg/requestcontext"
)

// APIKeyHeader carries the caller's key. Requests without it count against
// the anonymous tier.
const APIKeyHeader = "X-API-Key"

const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
	headerTier      = "X-RateLimit-Tier"
	headerStatus    = "X-RateLimit-Status"
)

type Limiter interface {
	Check(ctx context.Context, apiKey string) (*models.QuotaDecision, error)
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	auditor  ports.AuditPublisher
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(m *Middleware) {
		m.auditor = publisher
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RequireQuota resolves the caller's tier and consumes one request from it.
func (m *Middleware) RequireQuota() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			apiKey := r.Header.Get(APIKeyHeader)

			decision, err := m.limiter.Check(ctx, apiKey)
			if err != nil {
				if de, ok := dErrors.As(err); ok && de.Code == dErrors.CodeUnauthorized {
					observability.LogAudit(ctx, m.logger, m.auditor, audit.EventAPIKeyRejected,
						"api_key_id", models.KeyID(apiKey),
						"ip", requestcontext.ClientIP(ctx),
						"reason", "unknown_api_key",
					)
					httputil.WriteError(w, err)
					return
				}
				m.logger.ErrorContext(ctx, "failed to check quota", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, decision)

			if !decision.Allowed() {
				observability.LogAudit(ctx, m.logger, m.auditor, audit.EventRateLimitExceeded,
					"tier", string(decision.Tier),
					"api_key_id", decision.KeyID,
					"reason", "quota_exhausted",
				)
				writeRateLimitExceeded(w, decision)
				return
			}

			ctx = requestcontext.WithTier(ctx, string(decision.Tier))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, decision *models.QuotaDecision) {
	h := w.Header()
	h.Set(headerTier, string(decision.Tier))
	if decision.Degraded {
		h.Set(headerStatus, "degraded")
	}
	if decision.Unlimited {
		h.Set(headerLimit, "unlimited")
		h.Set(headerRemaining, "unlimited")
		return
	}
	result := decision.Result
	if result == nil {
		return
	}
	h.Set(headerLimit, strconv.Itoa(result.Limit))
	h.Set(headerRemaining, strconv.Itoa(result.Remaining))
	if !result.ResetAt.IsZero() {
		h.Set(headerReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
}

func writeRateLimitExceeded(w http.ResponseWriter, decision *models.QuotaDecision) {
	result := decision.Result
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Request quota for the " + string(decision.Tier) + " tier is exhausted. Upgrade the plan or retry after the reset.",
		Tier:       decision.Tier,
		Limit:      result.Limit,
		ResetAt:    result.ResetAt,
		RetryAfter: result.RetryAfter,
	})
}
