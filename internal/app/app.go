package app

import (
	"fmt"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/match-insights/external/riot"
	"github.com/riskibarqy/match-insights/internal/config"
	"github.com/riskibarqy/match-insights/internal/domain/analysis"
	"github.com/riskibarqy/match-insights/internal/domain/scoring"
	cacherepo "github.com/riskibarqy/match-insights/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/match-insights/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/match-insights/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/match-insights/internal/infrastructure/taskqueue"
	"github.com/riskibarqy/match-insights/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/match-insights/internal/platform/cache"
	"github.com/riskibarqy/match-insights/internal/platform/logging"
	"github.com/riskibarqy/match-insights/internal/platform/resilience"
	"github.com/riskibarqy/match-insights/internal/usecase"
)

// Application is one fully wired process: the HTTP API, the queue worker
// that drains analysis tasks, and the infrastructure handles both share.
// cmd/api runs Server and Worker together; cmd/worker runs Worker alone.
type Application struct {
	Server *http.Server
	Worker *usecase.Worker

	closers []func() error
}

func New(cfg config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	app := &Application{}

	repo, err := app.newAnalysisRepository(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CacheEnabled {
		repo = cacherepo.NewAnalysisRepository(repo, basecache.NewStore(cfg.CacheTTL))
	}

	queue, err := app.newTaskQueue(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine, err := scoring.NewEngine(scoring.DefaultWeights())
	if err != nil {
		return nil, fmt.Errorf("build scoring engine: %w", err)
	}

	provider := riot.NewClient(riot.ClientConfig{
		BaseURL:    cfg.RiotBaseURL,
		APIKey:     cfg.RiotAPIKey,
		Timeout:    cfg.RiotTimeout,
		MaxRetries: cfg.RiotMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.RiotCircuitEnabled,
			FailureThreshold: cfg.RiotCircuitFailureCount,
			OpenTimeout:      cfg.RiotCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.RiotCircuitHalfOpenMaxReq,
		},
		Limiter: newRiotLimiter(cfg),
	})

	service := usecase.NewAnalysisService(provider, repo, queue, engine, usecase.AnalysisConfig{
		MaxAttempts: cfg.TaskMaxAttempts,
		HardTimeout: cfg.TaskHardTimeout,
		SoftTimeout: cfg.TaskSoftTimeout,
	}, logger)

	app.Worker = usecase.NewWorker(queue, service, usecase.WorkerConfig{
		Concurrency: cfg.WorkerCount,
		MaxAttempts: cfg.TaskMaxAttempts,
	}, logger)

	handler := httpapi.NewHandler(service, logger)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalAPIToken)

	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if app.Server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return app, nil
}

// Close releases infrastructure handles in reverse wiring order.
func (a *Application) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *Application) newAnalysisRepository(cfg config.Config) (analysis.Repository, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		return memory.NewAnalysisRepository(), nil
	case config.StorageDriverPostgres:
		db, err := otelsqlx.Connect("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
			otelsql.WithDBSystem("postgresql"),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return postgres.NewAnalysisRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (a *Application) newTaskQueue(cfg config.Config, logger *logging.Logger) (analysis.Queue, error) {
	switch cfg.QueueDriver {
	case config.QueueDriverMemory:
		return taskqueue.NewMemoryQueue(), nil
	case config.QueueDriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)
		return taskqueue.NewRedisQueue(rdb, taskqueue.RedisQueueConfig{
			Name:            cfg.TaskQueueName,
			PromoteInterval: cfg.QueuePromoteInterval,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.QueueDriver)
	}
}

func newRiotLimiter(cfg config.Config) *resilience.Limiter {
	if !cfg.RiotRateLimitEnabled {
		return nil
	}
	return resilience.NewLimiterFromConfig(resilience.RateLimitConfig{
		Enabled:           true,
		BurstCapacity:     cfg.RiotRateBurstLimit,
		BurstWindow:       cfg.RiotRateBurstWindow,
		SustainedCapacity: cfg.RiotRateSustainedLimit,
		SustainedWindow:   cfg.RiotRateSustainedWindow,
	})
}
