package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"creditrisk/internal/admin"
	"creditrisk/internal/decision"
	decisionhandler "creditrisk/internal/decision/handler"
	decisionmetrics "creditrisk/internal/decision/metrics"
	"creditrisk/internal/explain"
	httpapi "creditrisk/internal/http"
	"creditrisk/internal/notice"
	"creditrisk/internal/platform/config"
	"creditrisk/internal/platform/httpserver"
	"creditrisk/internal/platform/logger"
	"creditrisk/internal/platform/metrics"
	"creditrisk/internal/platform/redis"
	"creditrisk/internal/platform/telemetry"
	ratelimithandler "creditrisk/internal/ratelimit/handler"
	ratelimitmetrics "creditrisk/internal/ratelimit/metrics"
	ratelimitmw "creditrisk/internal/ratelimit/middleware"
	"creditrisk/internal/ratelimit/models"
	"creditrisk/internal/ratelimit/ports"
	"creditrisk/internal/ratelimit/service/quota"
	"creditrisk/internal/ratelimit/store/bucket"
	"creditrisk/internal/scoring"
	"creditrisk/pkg/platform/audit"
	"creditrisk/pkg/platform/audit/publisher"
	"creditrisk/pkg/platform/audit/store/memory"
	"creditrisk/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal module packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(reg)

	rt, err := buildRuntime(cfg, log)
	if err != nil {
		return err
	}

	archive, err := notice.NewArchive(cfg.Pipeline.NoticeDir)
	if err != nil {
		return err
	}

	auditStore, closeStore, err := buildAuditStore(ctx, cfg.Audit, log)
	if err != nil {
		return err
	}
	defer closeStore()
	pub := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
		publisher.WithDropHook(func(audit.Event) { httpMetrics.IncrementAuditDropped() }),
	)
	defer pub.Close()

	svc, err := decision.New(rt,
		decision.WithLogger(log),
		decision.WithMetrics(decisionmetrics.New(reg)),
		decision.WithAuditPublisher(pub),
		decision.WithNoticeArchive(archive),
		decision.WithBatchLimits(cfg.Pipeline.MaxBatchSize, cfg.Pipeline.BatchWorkers),
	)
	if err != nil {
		return err
	}

	primary, closeRedis, err := buildBucketStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeRedis()
	quotas, err := quota.New(primary,
		quota.WithLogger(log),
		quota.WithMetrics(ratelimitmetrics.New(reg)),
		quota.WithExtraKey(cfg.RateLimit.APIKey, models.TierEnterprise),
	)
	if err != nil {
		return fmt.Errorf("rate limits: %w", err)
	}
	limits := ratelimithandler.New(quotas, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:   log,
		Gatherer: reg,
		Metrics:  httpMetrics,
		Decision: decisionhandler.New(svc, log),
		Quota: ratelimitmw.New(quotas, log,
			ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
			ratelimitmw.WithAuditPublisher(pub),
		).RequireQuota(),
		Pricing:        limits,
		QuotaAdmin:     limits,
		Admin:          admin.New(pub, pub, log),
		AdminToken:     cfg.Server.AdminToken,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting creditrisk", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func buildRuntime(cfg config.Config, log *slog.Logger) (*decision.Runtime, error) {
	var (
		model scoring.Model
		err   error
	)
	if cfg.Model.Path != "" {
		model, err = scoring.LoadFile(cfg.Model.Path)
	} else {
		model, err = scoring.Default()
	}
	if err != nil {
		// Serve anyway: scoring routes answer 503 and /health reports degraded.
		log.Error("model not loaded", "path", cfg.Model.Path, "error", err)
		model = nil
	} else {
		info := model.Info()
		log.Info("model loaded", "name", info.Name, "version", info.Version, "features", len(info.Features))
	}

	explainCfg := explain.DefaultConfig()
	explainCfg.Samples = cfg.Pipeline.ExplainSamples
	explainCfg.Seed = cfg.Pipeline.ExplainSeed

	rt, err := decision.NewRuntime(decision.RuntimeConfig{
		Model:            model,
		Explain:          explainCfg,
		DeclineThreshold: cfg.Pipeline.DeclineThreshold,
		NoticeTopK:       cfg.Pipeline.NoticeTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("decision runtime: %w", err)
	}
	return rt, nil
}

func buildAuditStore(ctx context.Context, cfg config.Audit, log *slog.Logger) (audit.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("audit trail kept in memory")
		return memory.NewInMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit database: %w", err)
	}
	store := postgres.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("audit schema: %w", err)
	}
	log.Info("audit trail persisted to postgres")
	return store, func() { _ = db.Close() }, nil
}

func buildBucketStore(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (ports.BucketStore, func(), error) {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	if client == nil {
		log.Info("rate limits counted in memory")
		return bucket.NewInMemoryBucketStore(), func() {}, nil
	}
	log.Info("rate limits counted in redis", "addr", client.Addr(), "db", client.DB())
	return bucket.NewRedis(client.Client), func() { _ = client.Close() }, nil
}
