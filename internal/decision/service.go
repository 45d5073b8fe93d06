package decision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"creditrisk/internal/application"
	"creditrisk/internal/decision/metrics"
	"creditrisk/internal/decision/ports"
	"creditrisk/internal/explain"
	"creditrisk/internal/features"
	"creditrisk/internal/scoring"
	dErrors "creditrisk/pkg/domain-errors"
	"creditrisk/pkg/platform/audit"
	"creditrisk/pkg/platform/sentinel"
	"creditrisk/pkg/requestcontext"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxBatchSize = 100
	DefaultBatchWorkers = 8

	tracerName = "creditrisk/decision"
)

// Service runs the decision pipeline: encode, score, decide, explain and,
// for declines, notice and counterfactual.
type Service struct {
	rt           *Runtime
	logger       *slog.Logger
	metrics      *metrics.Metrics
	auditor      ports.AuditPort
	archive      ports.NoticeArchive
	tracer       trace.Tracer
	maxBatchSize int
	batchWorkers int
	startedAt    time.Time
	predictions  atomic.Int64
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

func WithAuditPublisher(p ports.AuditPort) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithNoticeArchive enables archiving of adverse notices.
func WithNoticeArchive(a ports.NoticeArchive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithBatchLimits bounds batch size and the number of items scored
// concurrently. Non-positive values keep the defaults.
func WithBatchLimits(maxSize, workers int) Option {
	return func(s *Service) {
		if maxSize > 0 {
			s.maxBatchSize = maxSize
		}
		if workers > 0 {
			s.batchWorkers = workers
		}
	}
}

func New(rt *Runtime, opts ...Option) (*Service, error) {
	if rt == nil {
		return nil, errors.New("decision runtime is required")
	}
	s := &Service{
		rt:           rt,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
		maxBatchSize: DefaultMaxBatchSize,
		batchWorkers: DefaultBatchWorkers,
		startedAt:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxBatchSize returns the configured batch limit.
func (s *Service) MaxBatchSize() int {
	return s.maxBatchSize
}

// Assess runs a single full or quick application through the pipeline. The
// assessment id is always minted here; the inbound request id is kept for
// correlation only, since it also names the archived notice.
func (s *Service) Assess(ctx context.Context, app *application.Application, mode application.Mode) (*Assessment, error) {
	channel := ChannelFull
	if mode == application.ModeQuick {
		channel = ChannelQuick
	}
	return s.assess(ctx, app, mode, channel, uuid.New())
}

func (s *Service) assess(ctx context.Context, app *application.Application, mode application.Mode, channel Channel, requestID uuid.UUID) (*Assessment, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "decision.assess", trace.WithAttributes(
		attribute.String("channel", string(channel)),
		attribute.String("request_id", requestID.String()),
		attribute.String("correlation_id", requestcontext.RequestID(ctx)),
	))
	defer span.End()

	d, vec, result, err := s.decide(ctx, app, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assessment rejected")
		s.reject(ctx, channel, requestID, err)
		return nil, err
	}

	a := &Assessment{
		RequestID:    requestID,
		Timestamp:    requestcontext.Now(ctx),
		Channel:      channel,
		Mode:         mode,
		Decision:     d,
		ModelVersion: result.ModelVersion,
		Ratios:       ratiosOf(app),
	}

	a.Explanation = s.explain(ctx, requestID, vec, s.rt.preferred)
	method := "none"
	var attributions []explain.Attribution
	if a.Explanation != nil {
		method = string(a.Explanation.Method)
		attributions = a.Explanation.Attributions
	}
	a.ExplanationText = s.rt.notices.ExplanationText(d.subject(), method, attributions)

	if d.Declined() {
		noticeStart := time.Now()
		n, err := s.rt.notices.Notice(d.subject(), attributions)
		if err != nil {
			return nil, translate(err)
		}
		a.Notice = n
		a.Recommendations = s.rt.notices.Recommendations(attributions)
		s.metrics.ObserveStage("notice", time.Since(noticeStart))

		a.Counterfactual = s.counterfactual(ctx, app, mode)
		s.archiveNotice(ctx, a)
	}

	a.ProcessingTime = time.Since(start)
	s.predictions.Add(1)
	s.metrics.IncrementOutcome(string(channel), string(d.Label), d.RiskGrade)
	s.metrics.ObserveAssessLatency(string(channel), a.ProcessingTime)
	span.SetAttributes(
		attribute.String("decision", string(d.Label)),
		attribute.String("risk_grade", d.RiskGrade),
		attribute.String("explain_method", method),
	)

	s.emit(ctx, audit.Event{
		Action:       string(audit.EventAssessmentCompleted),
		RequestID:    requestID.String(),
		Channel:      string(channel),
		Decision:     string(d.Label),
		RiskGrade:    d.RiskGrade,
		Probability:  d.Probability,
		ModelVersion: result.ModelVersion,
		Method:       method,
	})
	return a, nil
}

// decide runs encode, score and policy. Errors come back translated.
func (s *Service) decide(ctx context.Context, app *application.Application, mode application.Mode) (Decision, features.Vector, scoring.Result, error) {
	if app == nil {
		return Decision{}, nil, scoring.Result{}, dErrors.New(dErrors.CodeBadRequest, "application is required")
	}
	if err := app.CheckMode(mode); err != nil {
		return Decision{}, nil, scoring.Result{}, translate(err)
	}

	t := time.Now()
	vec, err := s.rt.encoder.Encode(app, mode)
	s.metrics.ObserveStage("encode", time.Since(t))
	if err != nil {
		return Decision{}, nil, scoring.Result{}, translate(err)
	}

	t = time.Now()
	result, err := s.rt.scorer.Score(vec)
	s.metrics.ObserveStage("score", time.Since(t))
	if err != nil {
		s.logger.ErrorContext(ctx, "scoring failed", "error", err)
		return Decision{}, nil, scoring.Result{}, translate(err)
	}

	d, err := s.rt.policy.Decide(result.Probability)
	if err != nil {
		return Decision{}, nil, scoring.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "model produced an invalid probability")
	}
	return d, vec, result, nil
}

// explain tries preferred, then the other strategy. A nil result means no
// explanation could be produced; the decision stands regardless.
func (s *Service) explain(ctx context.Context, requestID uuid.UUID, vec features.Vector, preferred scoring.Strategy) *explain.Explanation {
	ctx, span := s.tracer.Start(ctx, "decision.explain")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveStage("explain", time.Since(start)) }()

	model := s.rt.Model()
	exp, err := s.rt.explainer.Explain(model, vec, preferred)
	if err == nil {
		return exp
	}

	fallback := explain.Fallback(preferred)
	s.logger.WarnContext(ctx, "explanation strategy unavailable, trying fallback",
		"request_id", requestID,
		"strategy", preferred,
		"fallback", fallback,
		"error", err,
	)
	exp, err = s.rt.explainer.Explain(model, vec, fallback)
	if err == nil {
		s.metrics.IncrementExplainFallback(string(preferred), string(fallback))
		span.SetAttributes(attribute.String("fallback", string(fallback)))
		return exp
	}

	s.metrics.IncrementExplainUnavailable()
	span.RecordError(err)
	s.logger.WarnContext(ctx, "no explanation available",
		"request_id", requestID,
		"error", err,
	)
	return nil
}

// Decide runs only encode, score and policy. The offline fairness audit uses
// it; nothing is explained, archived or audited.
func (s *Service) Decide(ctx context.Context, app *application.Application, mode application.Mode) (Decision, error) {
	d, _, _, err := s.decide(ctx, app, mode)
	return d, err
}

// Explain scores app and returns its attribution using strategy, falling
// back to the other strategy when needed. An empty strategy uses the
// runtime's preferred one.
func (s *Service) Explain(ctx context.Context, app *application.Application, mode application.Mode, strategy scoring.Strategy) (*ExplainResult, error) {
	requestID := uuid.New()
	ctx, span := s.tracer.Start(ctx, "decision.explain_only", trace.WithAttributes(
		attribute.String("request_id", requestID.String()),
		attribute.String("correlation_id", requestcontext.RequestID(ctx)),
	))
	defer span.End()

	d, vec, result, err := s.decide(ctx, app, mode)
	if err != nil {
		span.RecordError(err)
		s.reject(ctx, ChannelExplain, requestID, err)
		return nil, err
	}
	if strategy == "" {
		strategy = s.rt.preferred
	}
	exp := s.explain(ctx, requestID, vec, strategy)
	if exp == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "no explanation strategy is available for the loaded model")
	}
	s.predictions.Add(1)

	s.emit(ctx, audit.Event{
		Action:       string(audit.EventExplanationServed),
		RequestID:    requestID.String(),
		Channel:      string(ChannelExplain),
		Decision:     string(d.Label),
		RiskGrade:    d.RiskGrade,
		Probability:  d.Probability,
		ModelVersion: result.ModelVersion,
		Method:       string(exp.Method),
	})
	return &ExplainResult{
		RequestID:   requestID,
		Requested:   strategy,
		Decision:    d,
		Explanation: exp,
	}, nil
}

// OpenNotice returns the archived notice for requestID. The caller closes it.
func (s *Service) OpenNotice(ctx context.Context, requestID uuid.UUID) (io.ReadCloser, error) {
	if s.archive == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "notice archiving is disabled")
	}
	rc, err := s.archive.Open(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no notice was issued for this request")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open notice")
	}
	s.emit(ctx, audit.Event{
		Action:    string(audit.EventNoticeRetrieved),
		RequestID: requestID.String(),
	})
	return rc, nil
}

// Policy returns the decision policy in force.
func (s *Service) Policy() *Policy {
	return s.rt.Policy()
}

// ModelInfo describes the loaded model; ok is false when none is loaded.
func (s *Service) ModelInfo() (scoring.Info, bool) {
	m := s.rt.Model()
	if m == nil {
		return scoring.Info{}, false
	}
	return m.Info(), true
}

// Health reports runtime counters.
func (s *Service) Health() Health {
	h := Health{
		SchemaVersion:    s.rt.Schema().Version,
		Uptime:           time.Since(s.startedAt),
		TotalPredictions: s.predictions.Load(),
	}
	if info, ok := s.ModelInfo(); ok {
		h.ModelLoaded = true
		h.ModelVersion = info.Version
	}
	return h
}

func (s *Service) archiveNotice(ctx context.Context, a *Assessment) {
	if s.archive == nil || a.Notice == nil {
		return
	}
	if err := s.archive.Save(ctx, a.RequestID, a.Notice.Text); err != nil {
		s.logger.ErrorContext(ctx, "failed to archive adverse notice",
			"request_id", a.RequestID,
			"error", err,
		)
		return
	}
	s.emit(ctx, audit.Event{
		Action:    string(audit.EventNoticeIssued),
		RequestID: a.RequestID.String(),
		Channel:   string(a.Channel),
		Decision:  string(a.Decision.Label),
		RiskGrade: a.Decision.RiskGrade,
	})
}

func (s *Service) reject(ctx context.Context, channel Channel, requestID uuid.UUID, err error) {
	reason := rejectReason(err)
	s.metrics.IncrementRejected(reason)
	s.emit(ctx, audit.Event{
		Action:    string(audit.EventAssessmentRejected),
		RequestID: requestID.String(),
		Channel:   string(channel),
		Reason:    reason,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if event.Subject == "" {
		event.Subject = requestcontext.Tier(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"request_id", event.RequestID,
			"correlation_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func ratiosOf(app *application.Application) Ratios {
	var r Ratios
	if v, ok := features.DebtToIncome(app); ok {
		r.DebtToIncome = &v
	}
	if v, ok := features.LoanToValue(app); ok {
		r.LoanToValue = &v
	}
	return r
}
