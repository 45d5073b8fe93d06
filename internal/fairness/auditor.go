package fairness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"creditrisk/internal/application"
)

// ErrNoObservations is returned when no row of the dataset could be scored.
var ErrNoObservations = errors.New("no rows could be scored")

// Predictor labels an application positive when the pipeline declines it.
type Predictor interface {
	Predict(ctx context.Context, app *application.Application) (bool, error)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, app *application.Application) (bool, error)

func (f PredictorFunc) Predict(ctx context.Context, app *application.Application) (bool, error) {
	return f(ctx, app)
}

// Auditor scores a dataset and measures disparity across protected groups.
type Auditor struct {
	thresholds   Thresholds
	logger       *slog.Logger
	workers      int
	progress     func(done, total int)
	now          func() time.Time
	modelVersion string
}

type Option func(*Auditor)

func WithThresholds(t Thresholds) Option {
	return func(a *Auditor) {
		a.thresholds = t
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithWorkers bounds how many rows are scored concurrently.
func WithWorkers(n int) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProgress registers a callback invoked after each scored row. It may be
// called from several goroutines.
func WithProgress(fn func(done, total int)) Option {
	return func(a *Auditor) {
		a.progress = fn
	}
}

// WithModelVersion records the audited model in the report.
func WithModelVersion(v string) Option {
	return func(a *Auditor) {
		a.modelVersion = v
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Auditor) {
		if now != nil {
			a.now = now
		}
	}
}

// New builds an auditor. Thresholds default to 0.10 / 0.20.
func New(opts ...Option) (*Auditor, error) {
	a := &Auditor{
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
		workers:    runtime.GOMAXPROCS(0),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.thresholds.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Audit scores every record with p and reports the requested metrics for
// each attribute. An empty metric list audits all metrics. Rows the
// predictor rejects are skipped and counted.
func (a *Auditor) Audit(ctx context.Context, p Predictor, ds *Dataset, attributes []string, metrics []Metric) (*Report, error) {
	if ds == nil {
		return nil, errors.New("dataset is required")
	}
	if len(attributes) == 0 {
		attributes = ds.Attributes
	}
	for _, attr := range attributes {
		if !slices.Contains(ds.Attributes, attr) {
			return nil, fmt.Errorf("attribute %q was not loaded with the dataset", attr)
		}
	}
	if len(metrics) == 0 {
		metrics = AllMetrics()
	}

	obs, skipped, err := a.score(ctx, p, ds)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, ErrNoObservations
	}

	report := &Report{
		GeneratedAt:  a.now().UTC(),
		ModelVersion: a.modelVersion,
		Samples:      len(obs),
		Skipped:      ds.Skipped + skipped,
		Thresholds:   a.thresholds,
	}
	verdicts := make([]Verdict, 0, len(attributes))
	for _, attr := range attributes {
		ar := Evaluate(obs, attr, metrics, a.thresholds)
		report.Attributes = append(report.Attributes, ar)
		verdicts = append(verdicts, ar.Verdict)
	}
	report.Verdict = worst(verdicts...)

	a.logger.InfoContext(ctx, "fairness audit completed",
		"samples", report.Samples,
		"skipped", report.Skipped,
		"verdict", report.Verdict,
	)
	return report, nil
}

func (a *Auditor) score(ctx context.Context, p Predictor, ds *Dataset) ([]Observation, int, error) {
	total := len(ds.Records)
	results := make([]*Observation, total)
	var done, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, rec := range ds.Records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			predicted, err := p.Predict(gctx, rec.Application)
			if err != nil {
				skipped.Add(1)
				a.logger.DebugContext(gctx, "row skipped", "line", rec.Line, "error", err)
			} else {
				results[i] = &Observation{Actual: rec.Defaulted, Predicted: predicted, Groups: rec.Groups}
			}
			if a.progress != nil {
				a.progress(int(done.Add(1)), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("audit interrupted: %w", err)
	}

	obs := make([]Observation, 0, total)
	for _, o := range results {
		if o != nil {
			obs = append(obs, *o)
		}
	}
	return obs, int(skipped.Load()), nil
}
