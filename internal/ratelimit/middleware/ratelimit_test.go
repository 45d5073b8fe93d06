package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"creditrisk/internal/ratelimit/models"
	"creditrisk/internal/ratelimit/ports/mocks"
	"creditrisk/internal/ratelimit/service/quota"
	"creditrisk/internal/ratelimit/store/bucket"
	"creditrisk/pkg/platform/audit"
	"creditrisk/pkg/platform/audit/publisher"
	auditmemory "creditrisk/pkg/platform/audit/store/memory"
	"creditrisk/pkg/platform/circuit"
	"creditrisk/pkg/requestcontext"
	"creditrisk/pkg/testutil"
)

func newLimiter(t *testing.T, opts ...quota.Option) *quota.Service {
	t.Helper()
	svc, err := quota.New(bucket.NewInMemoryBucketStore(), opts...)
	require.NoError(t, err)
	return svc
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// tierEcho writes back the tier the middleware stored on the context.
func tierEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, requestcontext.Tier(r.Context()))
	})
}

func call(h http.Handler, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quick-check", nil)
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func callFrom(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := testutil.WithClientIP(httptest.NewRequest(http.MethodPost, "/api/v1/quick-check", nil), ip)
	req = testutil.WithRequestID(req, "req-"+ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireQuota(t *testing.T) {
	t.Run("anonymous requests carry limit headers", func(t *testing.T) {
		m := New(newLimiter(t), discardLogger())
		h := m.RequireQuota()(tierEcho())

		rec := call(h, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "anonymous", rec.Body.String())
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
		assert.Equal(t, "anonymous", rec.Header().Get("X-RateLimit-Tier"))
		assert.Empty(t, rec.Header().Get("X-RateLimit-Status"))
	})

	t.Run("anonymous callers are counted per address", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		m := New(newLimiter(t), discardLogger(), WithAuditPublisher(publisher.NewPublisher(store)))
		h := m.RequireQuota()(tierEcho())

		for range 5 {
			require.Equal(t, http.StatusOK, callFrom(h, "10.0.0.1").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, callFrom(h, "10.0.0.1").Code)
		assert.Equal(t, http.StatusOK, callFrom(h, "10.0.0.2").Code)

		events, err := store.ListByRequest(context.Background(), "req-10.0.0.1")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, string(audit.EventRateLimitExceeded), events[0].Action)
	})

	t.Run("exhausted tier gets 429 with retry", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		m := New(newLimiter(t), discardLogger(), WithAuditPublisher(publisher.NewPublisher(store)))
		h := m.RequireQuota()(tierEcho())

		for range 10 {
			require.Equal(t, http.StatusOK, call(h, "demo-key-free-tier").Code)
		}
		rec := call(h, "demo-key-free-tier")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
		require.NoError(t, err)
		assert.Positive(t, retry)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		var body models.RateLimitExceededResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "rate_limit_exceeded", body.Error)
		assert.Equal(t, models.TierFree, body.Tier)
		assert.Equal(t, 10, body.Limit)
		assert.Equal(t, retry, body.RetryAfter)

		events, err := store.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, string(audit.EventRateLimitExceeded), events[0].Action)
		assert.Equal(t, audit.CategorySecurity, events[0].Category)
		assert.Equal(t, "free", events[0].Subject)
		assert.Equal(t, "quota_exhausted", events[0].Reason)
	})

	t.Run("unknown key gets 401 and is audited", func(t *testing.T) {
		store := auditmemory.NewInMemoryStore()
		m := New(newLimiter(t), discardLogger(), WithAuditPublisher(publisher.NewPublisher(store)))
		h := m.RequireQuota()(tierEcho())

		rec := call(h, "stolen")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "unauthorized")

		events, err := store.ListRecent(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, string(audit.EventAPIKeyRejected), events[0].Action)
		assert.Equal(t, models.KeyID("stolen"), events[0].Subject)
		assert.NotContains(t, events[0].Subject, "stolen", "raw keys never reach the audit log")
	})

	t.Run("unlimited tier", func(t *testing.T) {
		m := New(newLimiter(t), discardLogger())
		h := m.RequireQuota()(tierEcho())

		rec := call(h, "enterprise-key-unlimited")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "enterprise", rec.Body.String())
		assert.Equal(t, "unlimited", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "unlimited", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Empty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("degraded store is flagged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		primary := mocks.NewMockBucketStore(ctrl)
		primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("redis down")).AnyTimes()
		svc, err := quota.New(primary, quota.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))))
		require.NoError(t, err)

		h := New(svc, discardLogger()).RequireQuota()(tierEcho())
		rec := call(h, "starter-key-500")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "degraded", rec.Header().Get("X-RateLimit-Status"))
		assert.Equal(t, "499", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("disabled passes everything", func(t *testing.T) {
		m := New(newLimiter(t), discardLogger(), WithDisabled(true))
		h := m.RequireQuota()(tierEcho())

		for range 20 {
			rec := call(h, "stolen")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	})
}
