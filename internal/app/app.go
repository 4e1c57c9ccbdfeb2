// Package app assembles the service from configuration. The HTTP server and
// the Lambda entry point share it so both serve the same route table.
package app

import (
	"context"
	"net/http"
	"time"

	"scenario-writing-lab/internal/advice"
	"scenario-writing-lab/internal/config"
	"scenario-writing-lab/internal/document"
	"scenario-writing-lab/internal/export"
	"scenario-writing-lab/internal/ratelimit"
	"scenario-writing-lab/internal/redact"
	"scenario-writing-lab/internal/router"
	"scenario-writing-lab/internal/secret"
	"scenario-writing-lab/internal/worker"
	"scenario-writing-lab/redis"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	cacheWorkers   = 4
	cacheQueueSize = 1000
	cacheTaskLimit = 2 * time.Second
	rateLimitKey   = "ratelimit:advice"
)

// App holds the assembled engine and everything that must be released on shutdown.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Engine *gin.Engine

	store  document.Store
	pool   *worker.WorkerPool
	redis  *goredis.Client
	cancel context.CancelFunc
}

// New wires stores, services and handlers. Unreachable optional backends
// (redis, postgres, dynamodb, ssm) are logged and replaced by in-process ones.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *App {
	ctx, cancel := context.WithCancel(ctx)

	redisClient := redis.Connect(ctx, cfg.RedisAddress, logger)
	store := document.NewStore(ctx, cfg, logger)
	pool := worker.NewWorkerPool(cacheWorkers, cacheQueueSize, cacheTaskLimit, logger)

	secrets := newSecretResolver(ctx, cfg, logger)
	redactor := redact.New(advice.CredentialNames()...)
	limiter := newLimiter(ctx, cfg, redisClient, logger)

	docService := document.NewService(store, redis.NewCache(redisClient), pool)
	gateway := advice.NewGateway(secrets, advice.SimulatedCaller{Latency: cfg.AdviceSimulatedLatency}, redactor)

	engine := router.New(router.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Redactor:  redactor,
		Documents: document.NewHandler(docService),
		Advice:    advice.NewHandler(gateway, limiter, secrets, redactor, cfg.AdviceTimeout),
		Export:    export.NewHandler(),
	})

	logger.Info().
		Str("documentStore", store.Backend()).
		Str("secretSource", cfg.SecretSource).
		Bool("redis", redisClient != nil).
		Msg("Application initialised")

	return &App{
		Config: cfg,
		Logger: logger,
		Engine: engine,
		store:  store,
		pool:   pool,
		redis:  redisClient,
		cancel: cancel,
	}
}

// Handler is the http.Handler serving every route.
func (a *App) Handler() http.Handler {
	return a.Engine.Handler()
}

// Close stops background work and releases backend connections.
func (a *App) Close() {
	a.cancel()
	a.pool.Shutdown()

	if closer, ok := a.store.(document.Closer); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close document store")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close Redis client")
		}
	}
}

func newSecretResolver(ctx context.Context, cfg *config.Config, logger zerolog.Logger) secret.Resolver {
	if cfg.SecretSource != config.SecretSourceSSM {
		return secret.NewEnvResolver()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load AWS config for SSM. Falling back to environment credentials.")
		return secret.NewEnvResolver()
	}
	return secret.NewSSMResolver(ssm.NewFromConfig(awsCfg), cfg.SSMPrefix)
}

func newLimiter(ctx context.Context, cfg *config.Config, client *goredis.Client, logger zerolog.Logger) ratelimit.Limiter {
	if cfg.RateLimitBackend == config.BackendRedis {
		if client != nil {
			return ratelimit.NewRedisLimiter(client, rateLimitKey, cfg.AdviceRateLimit, cfg.AdviceRateWindow)
		}
		logger.Warn().Msg("Redis rate limiter requested without a Redis connection. Using in-memory limiter.")
	}

	limiter := ratelimit.NewMemoryLimiter(cfg.AdviceRateLimit, cfg.AdviceRateWindow)
	if cfg.AdviceRateWindow > 0 {
		limiter.StartSweeper(ctx, cfg.AdviceRateWindow)
	}
	return limiter
}
