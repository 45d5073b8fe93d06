package decision

import (
	"context"
	"fmt"
	"time"

	"creditrisk/internal/application"
	dErrors "creditrisk/pkg/domain-errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// AssessBatch scores every item independently with at most batchWorkers in
// flight. Results keep input order; a failing item never fails the batch.
func (s *Service) AssessBatch(ctx context.Context, items []BatchItem) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "applications must not be empty")
	}
	if len(items) > s.maxBatchSize {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("batch exceeds the maximum of %d applications", s.maxBatchSize))
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "decision.assess_batch", trace.WithAttributes(
		attribute.Int("batch_size", len(items)),
	))
	defer span.End()
	s.metrics.ObserveBatchSize(len(items))

	outcomes := make([]BatchOutcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchWorkers)

	for i, item := range items {
		outcomes[i].Index = i
		if item.Err != nil {
			outcomes[i].Err = item.Err
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].Err = dErrors.Wrap(err, dErrors.CodeTimeout, "batch was cancelled before this item was scored")
				return nil
			}
			a, err := s.assess(gctx, item.Application, application.ModeFull, ChannelBatch, uuid.New())
			outcomes[i].Assessment = a
			outcomes[i].Err = err
			return nil
		})
	}
	// Items report their own errors; the group never fails.
	_ = g.Wait()

	result := &BatchResult{Items: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			result.Failed++
		case o.Assessment.Decision.Declined():
			result.Declined++
		default:
			result.Approved++
		}
	}
	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("approved", result.Approved),
		attribute.Int("declined", result.Declined),
		attribute.Int("failed", result.Failed),
	)
	return result, nil
}
