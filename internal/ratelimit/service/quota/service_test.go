package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"creditrisk/internal/ratelimit/models"
	"creditrisk/internal/ratelimit/ports/mocks"
	"creditrisk/internal/ratelimit/store/bucket"
	dErrors "creditrisk/pkg/domain-errors"
	"creditrisk/pkg/platform/circuit"
	"creditrisk/pkg/requestcontext"
)

type QuotaServiceSuite struct {
	suite.Suite
	ctx context.Context
}

func TestQuotaServiceSuite(t *testing.T) {
	suite.Run(t, new(QuotaServiceSuite))
}

func (s *QuotaServiceSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *QuotaServiceSuite) newService(opts ...Option) *Service {
	svc, err := New(bucket.NewInMemoryBucketStore(), opts...)
	s.Require().NoError(err)
	return svc
}

func (s *QuotaServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "bucket store is required")
	})

	s.Run("rejects catalogue without anonymous tier", func() {
		_, err := New(bucket.NewInMemoryBucketStore(), WithTiers([]models.TierLimit{
			{Tier: models.TierFree, RequestsPerWindow: 10},
		}))
		s.Require().Error(err)
		s.Contains(err.Error(), "anonymous tier")
	})

	s.Run("rejects key pointing at a missing tier", func() {
		_, err := New(bucket.NewInMemoryBucketStore(), WithTiers([]models.TierLimit{
			{Tier: models.TierAnonymous, RequestsPerWindow: 5},
		}))
		s.Require().Error(err)
		s.Contains(err.Error(), "unconfigured tier")
	})

	s.Run("rejects negative limits", func() {
		tiers := models.DefaultTiers()
		tiers[1].RequestsPerWindow = -1
		_, err := New(bucket.NewInMemoryBucketStore(), WithTiers(tiers))
		s.Require().Error(err)
	})
}

func (s *QuotaServiceSuite) TestCheckTiers() {
	s.Run("empty key counts against anonymous tier", func() {
		svc := s.newService()
		for i := range 5 {
			d, err := svc.Check(s.ctx, "")
			s.Require().NoError(err)
			s.Equal(models.TierAnonymous, d.Tier)
			s.True(d.Allowed(), "request %d", i+1)
			s.Equal(5, d.Result.Limit)
			s.Equal(4-i, d.Result.Remaining)
		}
		d, err := svc.Check(s.ctx, "")
		s.Require().NoError(err)
		s.False(d.Allowed())
		s.Positive(d.Result.RetryAfter)
	})

	s.Run("free key is limited to ten", func() {
		svc := s.newService()
		for range 10 {
			d, err := svc.Check(s.ctx, "demo-key-free-tier")
			s.Require().NoError(err)
			s.True(d.Allowed())
		}
		d, err := svc.Check(s.ctx, "demo-key-free-tier")
		s.Require().NoError(err)
		s.Equal(models.TierFree, d.Tier)
		s.False(d.Allowed())
	})

	s.Run("keys are counted separately", func() {
		svc := s.newService()
		for range 5 {
			_, err := svc.Check(s.ctx, "")
			s.Require().NoError(err)
		}
		d, err := svc.Check(s.ctx, "starter-key-500")
		s.Require().NoError(err)
		s.True(d.Allowed())
		s.Equal(499, d.Result.Remaining)
	})

	s.Run("anonymous callers are counted per address", func() {
		svc := s.newService()
		first := requestcontext.WithClientMetadata(s.ctx, "10.0.0.1", "")
		second := requestcontext.WithClientMetadata(s.ctx, "10.0.0.2", "")
		for range 5 {
			_, err := svc.Check(first, "")
			s.Require().NoError(err)
		}
		d, err := svc.Check(first, "")
		s.Require().NoError(err)
		s.False(d.Allowed())
		s.Equal("anonymous-10.0.0.1", d.KeyID)

		d, err = svc.Check(second, "")
		s.Require().NoError(err)
		s.True(d.Allowed())
	})

	s.Run("enterprise key is never counted", func() {
		svc := s.newService()
		d, err := svc.Check(s.ctx, "enterprise-key-unlimited")
		s.Require().NoError(err)
		s.True(d.Unlimited)
		s.True(d.Allowed())
		s.Nil(d.Result)

		count, err := svc.Usage(s.ctx, models.KeyID("enterprise-key-unlimited"))
		s.Require().NoError(err)
		s.Zero(count)
	})

	s.Run("unknown key is unauthorized", func() {
		svc := s.newService()
		_, err := svc.Check(s.ctx, "not-a-key")
		s.Require().Error(err)
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeUnauthorized, de.Code)
	})

	s.Run("configured key gets its tier", func() {
		svc := s.newService(WithExtraKey("ops-secret", models.TierEnterprise))
		d, err := svc.Check(s.ctx, "ops-secret")
		s.Require().NoError(err)
		s.Equal(models.TierEnterprise, d.Tier)
		s.True(d.Unlimited)
	})

	s.Run("empty configured key is ignored", func() {
		svc := s.newService(WithExtraKey("", models.TierEnterprise))
		d, err := svc.Check(s.ctx, "")
		s.Require().NoError(err)
		s.Equal(models.TierAnonymous, d.Tier)
	})
}

func (s *QuotaServiceSuite) TestUsageAndReset() {
	svc := s.newService()
	keyID := models.KeyID("demo-key-free-tier")

	for range 3 {
		_, err := svc.Check(s.ctx, "demo-key-free-tier")
		s.Require().NoError(err)
	}
	count, err := svc.Usage(s.ctx, keyID)
	s.Require().NoError(err)
	s.Equal(3, count)

	s.Require().NoError(svc.Reset(s.ctx, keyID))
	count, err = svc.Usage(s.ctx, keyID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *QuotaServiceSuite) TestStoreFailover() {
	storeErr := errors.New("connection refused")

	s.Run("failures below threshold let requests through", func() {
		ctrl := gomock.NewController(s.T())
		primary := mocks.NewMockBucketStore(ctrl)
		primary.EXPECT().Allow(gomock.Any(), gomock.Any(), 10, models.DefaultWindow).Return(nil, storeErr)

		svc, err := New(primary, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(3))))
		s.Require().NoError(err)

		d, err := svc.Check(s.ctx, "demo-key-free-tier")
		s.Require().NoError(err)
		s.True(d.Allowed())
		s.True(d.Degraded)
	})

	s.Run("open circuit counts in the fallback", func() {
		ctrl := gomock.NewController(s.T())
		primary := mocks.NewMockBucketStore(ctrl)
		primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storeErr).AnyTimes()

		svc, err := New(primary, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))))
		s.Require().NoError(err)

		for range 10 {
			d, err := svc.Check(s.ctx, "demo-key-free-tier")
			s.Require().NoError(err)
			s.True(d.Degraded)
			s.True(d.Allowed())
		}
		d, err := svc.Check(s.ctx, "demo-key-free-tier")
		s.Require().NoError(err)
		s.True(d.Degraded)
		s.False(d.Allowed(), "fallback enforces the same limit")
	})

	s.Run("circuit closes after primary recovers", func() {
		ctrl := gomock.NewController(s.T())
		primary := mocks.NewMockBucketStore(ctrl)
		healthy := &models.RateLimitResult{Allowed: true, Limit: 10, Remaining: 9, ResetAt: time.Now().Add(time.Hour)}
		gomock.InOrder(
			primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storeErr),
			primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(healthy, nil),
			primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(healthy, nil),
		)

		breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))
		svc, err := New(primary, WithBreaker(breaker))
		s.Require().NoError(err)

		d, err := svc.Check(s.ctx, "demo-key-free-tier")
		s.Require().NoError(err)
		s.True(d.Degraded)
		s.True(breaker.IsOpen())

		d, err = svc.Check(s.ctx, "demo-key-free-tier")
		s.Require().NoError(err)
		s.True(d.Degraded, "still on fallback until enough successes")

		d, err = svc.Check(s.ctx, "demo-key-free-tier")
		s.Require().NoError(err)
		s.False(d.Degraded)
		s.Same(healthy, d.Result)
		s.False(breaker.IsOpen())
	})

	s.Run("usage reads the fallback while open", func() {
		ctrl := gomock.NewController(s.T())
		primary := mocks.NewMockBucketStore(ctrl)
		primary.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storeErr).AnyTimes()

		svc, err := New(primary, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))))
		s.Require().NoError(err)
		for range 2 {
			_, err := svc.Check(s.ctx, "demo-key-free-tier")
			s.Require().NoError(err)
		}

		count, err := svc.Usage(s.ctx, models.KeyID("demo-key-free-tier"))
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("usage surfaces primary errors as unavailable", func() {
		ctrl := gomock.NewController(s.T())
		primary := mocks.NewMockBucketStore(ctrl)
		primary.EXPECT().GetCurrentCount(gomock.Any(), gomock.Any()).Return(0, storeErr)

		svc, err := New(primary)
		s.Require().NoError(err)

		_, err = svc.Usage(s.ctx, "abc")
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeUnavailable, de.Code)
	})
}
