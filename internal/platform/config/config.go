// Package config reads server settings from the environment so main stays lean.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	liststr "creditrisk/pkg/platform/strings"
)

// Config is the full server configuration.
type Config struct {
	Server    Server
	Model     Model
	Pipeline  Pipeline
	Logging   Logging
	RateLimit RateLimit
	Redis     RedisConfig
	Audit     Audit
	Telemetry Telemetry
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	RequestTimeout time.Duration
	AdminToken     string
	CORSOrigins    []string
}

// Model locates the scoring model. An empty Path uses the embedded model.
type Model struct {
	Path string
}

// Pipeline tunes the decision pipeline.
type Pipeline struct {
	DeclineThreshold float64
	MaxBatchSize     int
	BatchWorkers     int
	ExplainSamples   int
	ExplainSeed      uint64
	NoticeTopK       int
	NoticeDir        string
}

type Logging struct {
	Level  string
	Format string
}

// RateLimit configures API-key quotas. APIKey, when set, is an extra
// enterprise key.
type RateLimit struct {
	Disabled bool
	APIKey   string
}

// RedisConfig enables the shared rate limit store when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit selects the audit store. An empty DatabaseURL keeps events in memory.
type Audit struct {
	DatabaseURL string
	BufferSize  int
}

// Telemetry exports traces over OTLP/HTTP when Endpoint is set.
type Telemetry struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

func (t Telemetry) Enabled() bool {
	return t.Endpoint != ""
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           ":8080",
			RequestTimeout: 30 * time.Second,
		},
		Pipeline: Pipeline{
			DeclineThreshold: 0.5,
			MaxBatchSize:     100,
			BatchWorkers:     8,
			ExplainSamples:   1000,
			ExplainSeed:      42,
			NoticeTopK:       5,
			NoticeDir:        filepath.Join(os.TempDir(), "creditrisk", "notices"),
		},
		Logging: Logging{Level: "info", Format: "json"},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Audit: Audit{BufferSize: 1024},
		Telemetry: Telemetry{
			ServiceName:    "creditrisk",
			ServiceVersion: "dev",
		},
	}
}

// FromEnv overlays environment variables on Default. Every malformed value is
// reported, not just the first.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.str("CREDITRISK_ADDR", &cfg.Server.Addr)
	p.duration("REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	p.str("ADMIN_TOKEN", &cfg.Server.AdminToken)
	if v, ok := lookup("CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = liststr.SplitList(v)
	}

	p.str("MODEL_PATH", &cfg.Model.Path)

	p.float("DECLINE_THRESHOLD", &cfg.Pipeline.DeclineThreshold)
	p.integer("MAX_BATCH_SIZE", &cfg.Pipeline.MaxBatchSize)
	p.integer("BATCH_WORKERS", &cfg.Pipeline.BatchWorkers)
	p.integer("EXPLAIN_SAMPLES", &cfg.Pipeline.ExplainSamples)
	p.uint("EXPLAIN_SEED", &cfg.Pipeline.ExplainSeed)
	p.integer("NOTICE_TOP_K", &cfg.Pipeline.NoticeTopK)
	p.str("NOTICE_DIR", &cfg.Pipeline.NoticeDir)

	p.str("LOG_LEVEL", &cfg.Logging.Level)
	p.str("LOG_FORMAT", &cfg.Logging.Format)

	p.boolean("RATE_LIMIT_DISABLED", &cfg.RateLimit.Disabled)
	p.str("API_KEY", &cfg.RateLimit.APIKey)

	p.str("REDIS_URL", &cfg.Redis.URL)
	p.integer("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	p.integer("REDIS_MIN_IDLE_CONNS", &cfg.Redis.MinIdleConns)
	p.duration("REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)
	p.duration("REDIS_READ_TIMEOUT", &cfg.Redis.ReadTimeout)
	p.duration("REDIS_WRITE_TIMEOUT", &cfg.Redis.WriteTimeout)

	p.str("DATABASE_URL", &cfg.Audit.DatabaseURL)
	p.integer("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)

	p.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.Endpoint)
	p.str("OTEL_EXPORTER_OTLP_HEADERS", &cfg.Telemetry.Headers)
	p.str("OTEL_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	p.str("SERVICE_VERSION", &cfg.Telemetry.ServiceVersion)

	if err := cfg.Validate(); err != nil {
		p.errs = append(p.errs, err)
	}
	return cfg, errors.Join(p.errs...)
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Pipeline.DeclineThreshold <= 0 || c.Pipeline.DeclineThreshold > 1 {
		errs = append(errs, fmt.Errorf("DECLINE_THRESHOLD must be in (0,1], got %v", c.Pipeline.DeclineThreshold))
	}
	if c.Pipeline.MaxBatchSize < 1 {
		errs = append(errs, fmt.Errorf("MAX_BATCH_SIZE must be positive, got %d", c.Pipeline.MaxBatchSize))
	}
	if c.Pipeline.BatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.Pipeline.BatchWorkers))
	}
	if c.Pipeline.ExplainSamples < 1 {
		errs = append(errs, fmt.Errorf("EXPLAIN_SAMPLES must be positive, got %d", c.Pipeline.ExplainSamples))
	}
	if c.Pipeline.NoticeTopK < 1 {
		errs = append(errs, fmt.Errorf("NOTICE_TOP_K must be positive, got %d", c.Pipeline.NoticeTopK))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (p *parser) uint(key string, dst *uint64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
