package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/yourusername/clever-forecast/internal/api"
	"github.com/yourusername/clever-forecast/internal/config"
	"github.com/yourusername/clever-forecast/internal/health"
	"github.com/yourusername/clever-forecast/internal/logger"
	"github.com/yourusername/clever-forecast/internal/metrics"
	"github.com/yourusername/clever-forecast/internal/scheduler"
	"github.com/yourusername/clever-forecast/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prediction API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Clever Forecast starting")

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:  tracingServiceName(),
		Enabled:      cfg.Tracing.Enabled,
		Endpoint:     cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
	}, appLog)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			appLog.WithError(err).Warn("Failed to flush traces")
		}
	}()

	a, err := buildApp(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	grpcHealth := grpchealth.NewServer()
	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Server.HealthPort,
		Logger:      appLog,
		GRPC:        grpcHealth,
	})
	healthServer.Register("registry", health.CheckerFunc(a.predictor.CheckRegistry))
	if a.db != nil {
		healthServer.Register("database", health.FromPinger(a.db))
	}
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	grpcServer, err := startGRPC(grpcHealth)
	if err != nil {
		return err
	}
	defer grpcServer.GracefulStop()

	if cfg.Registry.WarmOnStart {
		loaded, err := a.predictor.Warm(ctx)
		if err != nil {
			appLog.WithError(err).Warn("Registry warm-up finished with errors")
		}
		appLog.WithField("artifacts", loaded).Info("Registry warmed")
	}

	sched := scheduler.NewScheduler(appLog)
	if cfg.Registry.ReloadSchedule != "" {
		if _, err := sched.ScheduleReload(cfg.Registry.ReloadSchedule, a.predictor); err != nil {
			return fmt.Errorf("failed to schedule registry reload: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				appLog.WithError(err).Warn("Scheduler stop failed")
			}
		}()
	}

	apiOpts := []api.Option{
		api.WithLogger(appLog),
		api.WithPort(cfg.Server.HTTPPort),
		api.WithMaxBatchSize(cfg.Server.MaxBatchSize),
		api.WithTimeouts(
			time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second,
			time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second,
		),
		api.WithHealth(healthServer.Handler()),
	}
	if cfg.Metrics.Enabled {
		apiOpts = append(apiOpts, api.WithMetrics(cfg.Metrics.Path, metrics.Handler()))
	}
	if a.repos != nil && cfg.Database.StorePredictions {
		apiOpts = append(apiOpts, api.WithHistory(a.repos.Predictions))
	}
	apiServer := api.NewServer(a.predictor, apiOpts...)
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	healthServer.SetReady(true)
	appLog.Info("Clever Forecast ready")

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-hangup:
			reloadConfig(ctx, a)
		}
	}
	appLog.Info("Shutdown signal received")
	healthServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("API server shutdown failed")
	}

	appLog.Info("Clever Forecast shut down")
	return nil
}

// startGRPC serves the gRPC health service when a port is configured
func startGRPC(hs *grpchealth.Server) (*grpc.Server, error) {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	if cfg.Server.GRPCPort == 0 {
		return srv, nil
	}

	lis, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.Server.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	go func() {
		appLog.WithField("port", cfg.Server.GRPCPort).Info("gRPC health server starting")
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			appLog.WithError(err).Error("gRPC server error")
		}
	}()
	return srv, nil
}

// reloadConfig re-reads CLEVER_FORECAST_CONFIG_PATH, applies blend weight
// overrides and reloads every model artifact.
func reloadConfig(ctx context.Context, a *app) {
	next := *cfg
	if err := config.ReloadFromEnv(&next); err != nil {
		appLog.WithError(err).Error("Config reload failed")
		return
	}
	if err := config.Validate(&next); err != nil {
		appLog.WithError(err).Error("Reloaded config is invalid")
		return
	}
	if err := a.predictor.ConfigureScoreImpact(next.Blend.ScoreImpact); err != nil {
		appLog.WithError(err).Error("Failed to apply score impact overrides")
		return
	}
	*cfg = next

	evicted, err := a.predictor.Reload(ctx)
	if err != nil {
		appLog.WithError(err).Warn("Registry reload finished with errors")
	}
	if a.http != nil {
		a.http.Reset()
	}
	logger.NewAuditLogger(appLog).LogConfigReload("config", "sighup", evicted)
}

func tracingServiceName() string {
	if cfg.Tracing.ServiceName != "" {
		return cfg.Tracing.ServiceName
	}
	return cfg.App.Name
}
