package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/patient-api/internal/config"
	"github.com/jwalitptl/patient-api/internal/handler/health"
	"github.com/jwalitptl/patient-api/internal/repository/postgres"
	"github.com/jwalitptl/patient-api/pkg/logger"
	"github.com/jwalitptl/patient-api/pkg/messaging/redis"
	"github.com/jwalitptl/patient-api/pkg/metrics"
	"github.com/jwalitptl/patient-api/pkg/worker"
)

// DatabaseEnv, RedisEnv and OutboxEnv are embedded so every variable
// keeps its full name; nesting them would also match bare names such as
// USER or PORT.
type DatabaseEnv struct {
	DatabaseHost            string        `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort            int           `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseUser            string        `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword        string        `envconfig:"DATABASE_PASSWORD"`
	DatabaseName            string        `envconfig:"DATABASE_NAME" default:"patients"`
	DatabaseSSLMode         string        `envconfig:"DATABASE_SSLMODE" default:"disable"`
	DatabaseMaxOpenConns    int           `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"5"`
	DatabaseMaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"2"`
	DatabaseConnMaxLifetime time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"5m"`
}

type RedisEnv struct {
	RedisURL             string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisMaxRetries      int           `envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RedisRetryBackoff    time.Duration `envconfig:"REDIS_RETRY_BACKOFF" default:"100ms"`
	RedisPoolSize        int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	RedisMinIdleConns    int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"1"`
	RedisBreakerFailures uint32        `envconfig:"REDIS_BREAKER_FAILURES" default:"5"`
	RedisBreakerTimeout  time.Duration `envconfig:"REDIS_BREAKER_TIMEOUT" default:"30s"`
}

type OutboxEnv struct {
	OutboxBatchSize       int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval    time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	OutboxRetryAttempts   int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetryDelay      time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`
	OutboxMaxRetries      int           `envconfig:"OUTBOX_MAX_RETRIES" default:"5"`
	OutboxMaxBackoff      time.Duration `envconfig:"OUTBOX_MAX_BACKOFF" default:"10m"`
	OutboxClaimLease      time.Duration `envconfig:"OUTBOX_CLAIM_LEASE" default:"5m"`
	OutboxChannel         string        `envconfig:"OUTBOX_CHANNEL" default:"patients"`
	OutboxRetention       time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
	OutboxCleanupInterval time.Duration `envconfig:"OUTBOX_CLEANUP_INTERVAL" default:"1h"`
}

type workerConfig struct {
	DatabaseEnv
	RedisEnv
	OutboxEnv
	Port     int    `envconfig:"WORKER_PORT" default:"9091"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func (c workerConfig) databaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUser,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c workerConfig) processorConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.OutboxBatchSize,
		PollInterval:  c.OutboxPollInterval,
		RetryAttempts: c.OutboxRetryAttempts,
		RetryDelay:    c.OutboxRetryDelay,
		MaxRetries:    c.OutboxMaxRetries,
		MaxBackoff:    c.OutboxMaxBackoff,
		ClaimLease:    c.OutboxClaimLease,
		ChannelPrefix: c.OutboxChannel,
	}
}

func (c workerConfig) brokerConfig() redis.Config {
	return redis.Config{
		URL:             c.RedisURL,
		MaxRetries:      c.RedisMaxRetries,
		RetryBackoff:    c.RedisRetryBackoff,
		PoolSize:        c.RedisPoolSize,
		MinIdleConns:    c.RedisMinIdleConns,
		BreakerFailures: c.RedisBreakerFailures,
		BreakerTimeout:  c.RedisBreakerTimeout,
	}
}

// pingers reports ready only when every dependency answers.
type pingers []health.Pinger

func (p pingers) PingContext(ctx context.Context) error {
	for _, pinger := range p {
		if err := pinger.PingContext(ctx); err != nil {
			return err
		}
	}
	return nil
}

type brokerPinger struct{ broker *redis.RedisBroker }

func (b brokerPinger) PingContext(ctx context.Context) error { return b.broker.Ping(ctx) }

func main() {
	_ = godotenv.Load()

	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load worker configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.Config{Level: cfg.LogLevel, Service: "patient-worker"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log.SetGlobal()

	if err := run(cfg, log); err != nil {
		log.Fatal(err, "Worker stopped")
	}
}

func run(cfg workerConfig, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.databaseConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(ctx, cfg.brokerConfig(), *log.Zerolog())
	if err != nil {
		return err
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry, "patient_worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	processor, err := worker.NewOutboxProcessor(outboxRepo, broker, cfg.processorConfig(), log, m)
	if err != nil {
		return err
	}
	cleanup := worker.NewOutboxCleanupWorker(outboxRepo, cfg.OutboxRetention, cfg.OutboxCleanupInterval, log, m)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(pingers{db, brokerPinger{broker}}).RegisterRoutes(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	go func() {
		log.Info("Serving worker health and metrics", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	wg.Wait()
	return nil
}
