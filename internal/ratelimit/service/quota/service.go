package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"creditrisk/internal/ratelimit/metrics"
	"creditrisk/internal/ratelimit/models"
	"creditrisk/internal/ratelimit/ports"
	"creditrisk/internal/ratelimit/store/bucket"
	dErrors "creditrisk/pkg/domain-errors"
	"creditrisk/pkg/platform/circuit"
	"creditrisk/pkg/requestcontext"
)

// Store is the sliding-window backend.
type Store = ports.BucketStore

// Service resolves API keys to tiers and counts their requests. When the
// primary store keeps failing, counting moves to an in-memory fallback
// until the primary recovers.
type Service struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	keys     map[string]models.APIKey
	tiers    map[models.Tier]models.TierLimit
	catalog  []models.TierLimit
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithKeys replaces the key registry.
func WithKeys(keys ...models.APIKey) Option {
	return func(s *Service) {
		s.keys = make(map[string]models.APIKey, len(keys))
		for _, k := range keys {
			s.keys[k.Key] = k
		}
	}
}

// WithExtraKey registers one more key, typically the operator's key from
// the environment.
func WithExtraKey(key string, tier models.Tier) Option {
	return func(s *Service) {
		if key == "" {
			return
		}
		s.keys[key] = models.APIKey{Key: key, Tier: tier, Name: "Configured key"}
	}
}

// WithTiers replaces the tier catalogue.
func WithTiers(tiers []models.TierLimit) Option {
	return func(s *Service) {
		s.catalog = tiers
	}
}

// WithWindow changes the counting window.
func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithFallback replaces the in-memory fallback store.
func WithFallback(store Store) Option {
	return func(s *Service) {
		if store != nil {
			s.fallback = store
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

func New(primary Store, opts ...Option) (*Service, error) {
	if primary == nil {
		return nil, fmt.Errorf("bucket store is required")
	}

	svc := &Service{
		primary:  primary,
		fallback: bucket.NewInMemoryBucketStore(),
		breaker:  circuit.New("ratelimit-store"),
		catalog:  models.DefaultTiers(),
		window:   models.DefaultWindow,
		logger:   slog.Default(),
	}
	WithKeys(models.DefaultAPIKeys()...)(svc)
	for _, opt := range opts {
		opt(svc)
	}

	svc.tiers = make(map[models.Tier]models.TierLimit, len(svc.catalog))
	for _, t := range svc.catalog {
		if !t.Tier.IsValid() {
			return nil, fmt.Errorf("unknown tier %q", t.Tier)
		}
		if t.RequestsPerWindow < 0 {
			return nil, fmt.Errorf("tier %s has a negative limit", t.Tier)
		}
		svc.tiers[t.Tier] = t
	}
	if _, ok := svc.tiers[models.TierAnonymous]; !ok {
		return nil, fmt.Errorf("anonymous tier must be configured")
	}
	for _, k := range svc.keys {
		if _, ok := svc.tiers[k.Tier]; !ok {
			return nil, fmt.Errorf("api key %s references unconfigured tier %q", models.KeyID(k.Key), k.Tier)
		}
	}
	return svc, nil
}

// Tiers returns the tier catalogue in display order.
func (s *Service) Tiers() []models.TierLimit {
	return append([]models.TierLimit(nil), s.catalog...)
}

// Window returns the counting window.
func (s *Service) Window() time.Duration {
	return s.window
}

// Check resolves apiKey and consumes one request from its tier. An empty
// key is the anonymous tier, counted per client address; an unknown key is
// rejected as unauthorized.
// Store failures are absorbed by the fallback and never returned.
func (s *Service) Check(ctx context.Context, apiKey string) (*models.QuotaDecision, error) {
	tier := models.TierAnonymous
	if apiKey != "" {
		k, ok := s.keys[apiKey]
		if !ok {
			s.metrics.IncrementCheck("unknown", "rejected")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid API key")
		}
		tier = k.Tier
	}
	limit := s.tiers[tier]
	keyID := models.KeyID(apiKey)
	if apiKey == "" {
		keyID = models.AnonymousKeyID(requestcontext.ClientIP(ctx))
	}
	decision := &models.QuotaDecision{Tier: tier, KeyID: keyID}

	if limit.Unlimited() {
		decision.Unlimited = true
		s.metrics.IncrementCheck(string(tier), "unlimited")
		return decision, nil
	}

	key := models.NewBucketKey(decision.KeyID)
	result, degraded := s.allow(ctx, key, limit.RequestsPerWindow)
	decision.Result = result
	decision.Degraded = degraded

	outcome := "allowed"
	if !result.Allowed {
		outcome = "limited"
	}
	s.metrics.IncrementCheck(string(tier), outcome)
	return decision, nil
}

// allow consults the primary store and falls back to memory while the
// circuit is open. The primary is still probed so it can close again.
func (s *Service) allow(ctx context.Context, key string, limit int) (*models.RateLimitResult, bool) {
	result, err := s.primary.Allow(ctx, key, limit, s.window)
	if err != nil {
		s.metrics.IncrementStoreErrors()
		useFallback, change := s.breaker.RecordFailure()
		s.observe(ctx, change, err)
		if !useFallback {
			// Below the failure threshold: let the request through rather than
			// reject it on an infrastructure error.
			s.logger.WarnContext(ctx, "rate limit store failed", "error", err)
			return &models.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit}, true
		}
		return s.fromFallback(ctx, key, limit), true
	}

	usePrimary, change := s.breaker.RecordSuccess()
	s.observe(ctx, change, nil)
	if !usePrimary {
		return s.fromFallback(ctx, key, limit), true
	}
	return result, false
}

func (s *Service) fromFallback(ctx context.Context, key string, limit int) *models.RateLimitResult {
	result, err := s.fallback.Allow(ctx, key, limit, s.window)
	if err != nil {
		s.logger.ErrorContext(ctx, "fallback rate limit store failed", "error", err)
		return &models.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit}
	}
	return result
}

func (s *Service) observe(ctx context.Context, change circuit.Change, err error) {
	switch {
	case change.Opened:
		s.metrics.IncrementBreakerChange(string(circuit.StateOpen))
		s.metrics.SetFallbackActive(true)
		s.logger.ErrorContext(ctx, "rate limit store unavailable, counting in memory",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	case change.Closed:
		s.metrics.IncrementBreakerChange(string(circuit.StateClosed))
		s.metrics.SetFallbackActive(false)
		s.logger.InfoContext(ctx, "rate limit store recovered", "breaker", s.breaker.Name())
	}
}

// Usage returns how many requests keyID has made in the current window.
// The fallback count is reported while the circuit is open.
func (s *Service) Usage(ctx context.Context, keyID string) (int, error) {
	key := models.NewBucketKey(keyID)
	if s.breaker.IsOpen() {
		return s.fallback.GetCurrentCount(ctx, key)
	}
	count, err := s.primary.GetCurrentCount(ctx, key)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}
	return count, nil
}

// Reset clears keyID's window in both stores.
func (s *Service) Reset(ctx context.Context, keyID string) error {
	key := models.NewBucketKey(keyID)
	if err := s.fallback.Reset(ctx, key); err != nil {
		return err
	}
	if err := s.primary.Reset(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}
	return nil
}
