package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-api/internal/config"
	"github.com/jwalitptl/patient-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/patient-api/internal/handler/patient"
	promHandler "github.com/jwalitptl/patient-api/internal/handler/prometheus"
	"github.com/jwalitptl/patient-api/internal/middleware"
	"github.com/jwalitptl/patient-api/internal/repository/postgres"
	"github.com/jwalitptl/patient-api/internal/router"
	eventService "github.com/jwalitptl/patient-api/internal/service/event"
	patientService "github.com/jwalitptl/patient-api/internal/service/patient"
	statusService "github.com/jwalitptl/patient-api/internal/service/status"
	"github.com/jwalitptl/patient-api/pkg/logger"
)

const metricsNamespace = "patient_api"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "patient-api",
		Short:         "Patient records HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing config.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(seedCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func seedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the patient status lookup rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*configPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			statuses := statusService.NewService(postgres.NewStatusRepository(db), cfg.Cache.StatusTTL, cfg.Cache.CleanupInterval)
			if err := statuses.Seed(ctx); err != nil {
				return fmt.Errorf("failed to seed statuses: %w", err)
			}
			log.Info().Msg("patient statuses seeded")
			return nil
		},
	}
}

func setup(configPath string) (*config.Config, error) {
	var paths []string
	if configPath != "" {
		paths = append(paths, configPath)
	}

	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.NewLogger(logger.Config{
		Level:   cfg.Log.Level,
		Service: "patient-api",
		Pretty:  cfg.Server.Mode == gin.DebugMode,
	})
	if err != nil {
		return nil, err
	}
	l.SetGlobal()

	return cfg, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := buildEngine(cfg, db)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func buildEngine(cfg *config.Config, db *sqlx.DB) *gin.Engine {
	patientRepo := postgres.NewPatientRepository(db)
	statusRepo := postgres.NewStatusRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	statuses := statusService.NewService(statusRepo, cfg.Cache.StatusTTL, cfg.Cache.CleanupInterval)

	var events patientService.EventEmitter
	if cfg.Events.Enabled {
		events = eventService.NewService(outboxRepo)
	}
	patients := patientService.NewService(patientRepo, statuses, patientService.NewValidator(), events)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, "patients"),
	)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}

	r := router.NewRouter(
		patientHandler.NewHandler(patients),
		health.NewHandler(db),
		promHandler.New(registry, metricsNamespace),
		router.RouterConfig{
			Mode:             cfg.Server.Mode,
			RequestTimeout:   cfg.Server.RequestTimeout,
			MaxBodyBytes:     cfg.Server.MaxBodyBytes,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit: middleware.RateLimiterConfig{
				Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
				Burst: cfg.RateLimit.Burst,
				Idle:  10 * time.Minute,
			},
			CORSConfig: corsConfig,
		},
	)
	return r.Setup()
}
