package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	httpapi "jobboard/internal/api/http"
	"jobboard/internal/config"
	"jobboard/internal/infra/etcd"
	"jobboard/internal/scheduler"
	"jobboard/internal/tracing"
	"jobboard/internal/usecase"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the maintenance scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if addr != "" {
				cfg.HttpListenAddr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http_listen_addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)

	var traceOut io.Writer
	if cfg.TraceEnabled {
		traceOut = os.Stdout
	}
	tracerShutdown, err := tracing.InitTracer(tracing.ServiceName, traceOut)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			logger.Warn("failed to shut down tracer", "error", err)
		}
	}()

	nodeID := uuid.NewString()
	logger.Info("starting jobboard", "node_id", nodeID, "store", cfg.StoreDriver, "change_feed", cfg.ChangeFeed)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg, nodeID, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	sched := scheduler.NewCronScheduler(rt.locker, logger)
	maintenance := usecase.NewMaintenanceService(rt.leader, sched, rt.gateway, cfg.MaintenanceSchedule, nodeID, logger)
	maintenanceDone := make(chan error, 1)
	go func() { maintenanceDone <- maintenance.Start(ctx) }()

	opts := httpapi.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		SavedCache:     rt.cache,
	}
	if rt.etcd != nil {
		registry := etcd.NewNodeRegistry(rt.etcd, logger)
		if err := registry.Register(ctx, nodeID, cfg.HttpListenAddr, int64(cfg.LeaderElectionTTL.Seconds())); err != nil {
			return fmt.Errorf("failed to register node: %w", err)
		}
		defer func() {
			if err := registry.Deregister(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to deregister node", "error", err)
			}
		}()
		go registry.Watch(ctx)
		opts.Cluster = registry
	}

	server := httpapi.NewServer(rt.gateway, opts, logger)

	serveErr := server.Run(ctx, cfg.HttpListenAddr)
	stop()
	if err := <-maintenanceDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("maintenance service stopped with error", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server failed: %w", serveErr)
	}
	logger.Info("jobboard shut down")
	return nil
}
