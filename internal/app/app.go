package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/studyforge/examgen/internal/config"
	"github.com/studyforge/examgen/internal/db/repository"
	"github.com/studyforge/examgen/internal/exam"
	"github.com/studyforge/examgen/internal/exam/ai"
	"github.com/studyforge/examgen/internal/extract"
	"github.com/studyforge/examgen/internal/logging"
	"github.com/studyforge/examgen/internal/server"
	"github.com/studyforge/examgen/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
}

// New bootstraps config, logger, optional Postgres and Redis, and the HTTP
// server around the generation service.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	var pool *pgxpool.Pool
	var examRepo *repository.ExamRepository
	if cfg.Postgres.Enabled() {
		connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)
		var err error
		pool, err = pgxpool.New(ctx, connString)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		examRepo = repository.NewExamRepository(pool)
	} else {
		logger.Warn().Msg("postgres not configured; exams will not be persisted")
	}

	var redisClient *redis.Client
	var examCache exam.ExamCache
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		examCache = exam.NewCache(redisClient, cfg.Redis.ExamTTL)
	} else {
		logger.Warn().Msg("redis not configured; repeated requests regenerate from scratch")
	}

	generator := ai.NewClient(ai.Config{
		BaseURL: cfg.Generator.URL,
		APIKey:  cfg.Generator.APIKey,
		Timeout: cfg.Generator.HTTPTimeout,
	}, logger)

	extractor := extract.NewFileExtractor(cfg.Extract.Root, cfg.Extract.MaxBytes, logger)

	limiter := exam.NewRateLimiter(exam.RateLimitConfig{
		PerMinute: cfg.RateLimit.CallsPerMinute,
		PerDay:    cfg.RateLimit.CallsPerDay,
	})

	scorerCfg := exam.DefaultScorerConfig()
	scorerCfg.StrictSource = cfg.Generation.StrictSource
	scorer := exam.NewScorer(scorerCfg)

	var store exam.ExamStore
	if examRepo != nil {
		store = examRepo
	}
	svc := exam.NewService(generator, extractor, limiter, scorer, examCache, store, logger, exam.ServiceOptions{
		Stagger:         cfg.Generation.BatchStagger,
		RetryBaseDelay:  cfg.Generation.RetryBaseDelay,
		MaxAttempts:     cfg.Generation.MaxAttempts,
		RateWaitCeiling: cfg.Generation.RateWaitCeiling,
	})

	hub := ws.NewHub(logger)
	runs := server.NewRunManager(svc, hub, logger)

	var reader server.ExamReader
	if examRepo != nil {
		reader = examRepo
	}
	handlers := server.NewExamHandlers(runs, reader, hub, logger)
	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, handlers)

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
