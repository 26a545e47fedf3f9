package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/onnwee/skyrank/internal/api"
	"github.com/onnwee/skyrank/internal/auth"
	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/config"
	"github.com/onnwee/skyrank/internal/db"
	"github.com/onnwee/skyrank/internal/health"
	"github.com/onnwee/skyrank/internal/jobs"
	"github.com/onnwee/skyrank/internal/middleware"
	"github.com/onnwee/skyrank/internal/pipeline"
	"github.com/onnwee/skyrank/internal/ranking"
	"github.com/onnwee/skyrank/internal/weather"
)

const serviceName = "skyrank-api"

// limiterCleanupInterval is a few times the longest rate limit window.
const limiterCleanupInterval = 5 * time.Minute

// server holds every long-lived dependency of the API process.
type server struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	db    *sql.DB
	redis *redis.Client

	holder  *catalog.Holder
	refresh *jobs.RefreshJob
	limiter *middleware.InMemoryRateLimitStore

	handler http.Handler
}

// newServer connects to the configured stores, loads the first catalog and
// builds the routed handler. Postgres and Redis are optional; a failed
// initial catalog load leaves the server unready until a refresh succeeds.
func newServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*server, error) {
	s := &server{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		holder:   catalog.NewHolder(nil, ""),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.db = conn
		if err := db.CheckSchema(ctx, conn); err != nil {
			logger.Warn("database schema check failed", "error", err)
		}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		s.redis = redis.NewClient(opts)
		if err := s.redis.Ping(ctx).Err(); err != nil {
			// Both Redis users fail open, so a cold Redis is not fatal.
			logger.Warn("redis unreachable at startup", "error", err)
		}
	}

	policy := buildPolicy(cfg, logger)

	pipelineMetrics := pipeline.NewMetrics()
	middlewareMetrics := middleware.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for _, m := range []interface{ Register(prometheus.Registerer) error }{pipelineMetrics, middlewareMetrics, jobMetrics} {
		if err := m.Register(s.registry); err != nil {
			s.close()
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	source, err := s.catalogSource()
	if err != nil {
		s.close()
		return nil, err
	}
	s.refresh = jobs.NewRefreshJob(jobs.RefreshJobConfig{
		Interval: cfg.CatalogRefreshInterval,
		Logger:   logger,
		Metrics:  jobMetrics,
	}, source, s.holder)
	if err := s.refresh.RefreshNow(ctx); err != nil {
		logger.Error("initial catalog load failed", "source", source.Name(), "error", err)
	}

	var interactions catalog.InteractionRecorder = catalog.NewInMemoryInteractionStore()
	if s.db != nil {
		interactions = catalog.NewPostgresInteractionStore(s.db)
	}

	p := pipeline.New(pipeline.Config{
		Policy:  policy,
		Weather: s.weatherAssessor(pipelineMetrics),
		Metrics: pipelineMetrics,
		Logger:  logger,
	})

	var validator middleware.TokenValidator
	if cfg.JWTSecret != "" {
		validator = auth.NewJWTService(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, ranking routes are unauthenticated")
	}

	var store middleware.RateLimitStore
	if s.redis != nil {
		rs := middleware.NewRedisRateLimitStore(s.redis)
		rs.Metrics = middlewareMetrics
		rs.Logger = logger
		store = rs
	} else {
		s.limiter = middleware.NewInMemoryRateLimitStore()
		store = s.limiter
	}

	healthCfg := api.HealthHandlersConfig{CatalogChecker: health.NewCatalogChecker(s.holder)}
	if s.db != nil {
		healthCfg.DBChecker = health.NewDBChecker(s.db)
	}
	if s.redis != nil {
		healthCfg.RedisChecker = health.NewRedisChecker(s.redis)
	}

	s.handler = s.routes(routes{
		rankings: api.NewRankingHandlers(api.RankingHandlersConfig{
			Ranker:       p,
			Catalog:      s.holder,
			Interactions: interactions,
			DefaultSeed:  cfg.DefaultSeed,
			Logger:       logger,
		}),
		catalog:   api.NewCatalogHandlers(s.holder, interactions),
		health:    api.NewHealthHandlers(healthCfg),
		validator: validator,
		store:     store,
		metrics:   middlewareMetrics,
	})
	return s, nil
}

// buildPolicy loads the calibration file and applies the configured
// overrides. A broken calibration file falls back to the defaults.
func buildPolicy(cfg *config.Config, logger *slog.Logger) *ranking.Policy {
	policy, err := ranking.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("using default scoring policy", "error", err)
	}
	policy.MinAltitude = cfg.MinAltitude
	policy.TopN = cfg.TopN
	return policy
}

// catalogSource picks the first configured source: file, S3, Postgres, then
// the built-in sample catalog.
func (s *server) catalogSource() (catalog.Source, error) {
	switch s.cfg.CatalogSource() {
	case "file":
		return catalog.FileSource{Path: s.cfg.CatalogPath}, nil
	case "s3":
		src, err := catalog.NewS3Source(catalog.S3Config{
			Bucket:          s.cfg.CatalogS3Bucket,
			Key:             s.cfg.CatalogS3Key,
			Endpoint:        s.cfg.CatalogS3Endpoint,
			AccessKeyID:     s.cfg.CatalogS3AccessKeyID,
			SecretAccessKey: s.cfg.CatalogS3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("invalid catalog s3 config: %w", err)
		}
		return src, nil
	case "postgres":
		if s.db == nil {
			return nil, errors.New("postgres catalog source requires a database connection")
		}
		return catalog.NewPostgresSource(s.db), nil
	default:
		return catalog.StaticSource{}, nil
	}
}

// weatherAssessor returns nil when no forecast URL is configured, which the
// pipeline treats as the neutral chance.
func (s *server) weatherAssessor(metrics *pipeline.Metrics) *weather.Assessor {
	if s.cfg.WeatherBaseURL == "" {
		return nil
	}
	client := &http.Client{
		Timeout:   s.cfg.WeatherTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	var provider weather.Provider = weather.NewOpenMeteoClient(s.cfg.WeatherBaseURL, client)
	if s.redis != nil {
		provider = weather.NewRedisCache(s.redis, provider, weather.RedisCacheConfig{
			TTL:     s.cfg.WeatherCacheTTL,
			Logger:  s.logger,
			Metrics: metrics,
		})
	}
	return &weather.Assessor{
		Provider: provider,
		Timeout:  s.cfg.WeatherTimeout,
		Logger:   s.logger,
		Metrics:  metrics,
	}
}

type routes struct {
	rankings  *api.RankingHandlers
	catalog   *api.CatalogHandlers
	health    *api.HealthHandlers
	validator middleware.TokenValidator
	store     middleware.RateLimitStore
	metrics   *middleware.Metrics
}

// routes builds the mux and wraps it in the middleware chain:
// RequestID -> Tracing -> Logging -> HTTPMetrics -> global rate limit -> mux.
// Ranking and interaction routes add auth and a per-user limit.
func (s *server) routes(r routes) http.Handler {
	protected := func(h http.HandlerFunc) http.Handler {
		limited := middleware.RateLimiter(r.store, middleware.DefaultRankingLimit(), middleware.UserKeyFunc(), r.metrics)(h)
		return middleware.RequireAuth(r.validator, r.metrics)(limited)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", r.health.Health)
	mux.HandleFunc("/ready", r.health.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.Handle("/v1/rankings", protected(r.rankings.Rank))
	mux.Handle("/v1/rankings/stream", protected(r.rankings.Stream))
	mux.Handle("/v1/interactions", protected(r.catalog.Interactions))
	mux.HandleFunc("/v1/catalog", r.catalog.Catalog)
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			api.WriteError(w, req.Context(), http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		api.WriteJSON(w, req.Context(), http.StatusOK, map[string]string{"service": serviceName, "version": version})
	})

	var handler http.Handler = mux
	handler = middleware.RateLimiter(r.store, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc(), r.metrics)(handler)
	handler = middleware.HTTPMetrics(r.metrics)(handler)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	return middleware.RequestID(handler)
}

// start launches the background jobs.
func (s *server) start(ctx context.Context) {
	if s.cfg.CatalogRefreshInterval > 0 {
		s.refresh.Start(ctx)
	}
	if s.limiter != nil {
		go func() {
			ticker := time.NewTicker(limiterCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.limiter.Cleanup()
				}
			}
		}()
	}
}

// close stops the background jobs and releases the store connections.
func (s *server) close() {
	if s.refresh != nil {
		s.refresh.Stop()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("failed to close database", "error", err)
		}
	}
}
