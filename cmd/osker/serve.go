package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/okian/osker/internal/adapters/http/api"
	"github.com/okian/osker/internal/adapters/tetrio"
	service "github.com/okian/osker/internal/app"
	"github.com/okian/osker/internal/config"
	"github.com/okian/osker/pkg/logger"
	"github.com/okian/osker/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 5 * time.Minute
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stats service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				if err := os.Setenv("OSKER_CONFIG", configPath); err != nil {
					return fmt.Errorf("set config path: %w", err)
				}
			}
			return serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (overrides $OSKER_CONFIG)")
	return cmd
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	log.Info(ctx, "starting osker", logger.String("addr", cfg.Addr), logger.String("source", cfg.APIBaseURL))
	err = app.tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	log.Info(context.Background(), "osker stopped")
	return nil
}

type application struct {
	svc    *service.Service
	router http.Handler
	tree   *suture.Supervisor
}

// build wires the source, service, API and supervision tree from cfg.
func build(ctx context.Context, cfg *config.Config) (*application, error) {
	log := logger.Get()

	source := tetrio.NewClient(
		tetrio.WithBaseURL(cfg.APIBaseURL),
		tetrio.WithUserAgent(cfg.APIUserAgent),
		tetrio.WithTimeout(cfg.APITimeout),
		tetrio.WithPageSize(cfg.APIPageSize),
		tetrio.WithMaxPlayers(cfg.APIMaxPlayers),
		tetrio.WithRequestsPerSecond(cfg.APIRequestsPerSecond),
		tetrio.WithDedupeSize(cfg.DedupeSize),
	)

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithSource(source),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithPartitionSize(cfg.PartitionSize),
		service.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start service: %w", err)
	}

	router := api.NewServer(svc,
		api.WithLogger(log.Named("api")),
		api.WithRateLimit(cfg.RateLimitPerMinute),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithRefreshTimeout(writeTimeout),
	).Router()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	tree := suture.New("osker", suture.Spec{
		EventHook: (&sutureslog.Handler{Logger: logger.Slog()}).MustHook(),
	})
	tree.Add(api.NewHTTPService(srv, shutdownTimeout))
	tree.Add(service.NewRefreshService(svc, cfg.RefreshInterval, cfg.RefreshOnStart))
	tree.Add(runtimeMetrics{interval: systemMetricsInterval})

	return &application{svc: svc, router: router, tree: tree}, nil
}

// runtimeMetrics publishes memory and goroutine gauges.
type runtimeMetrics struct {
	interval time.Duration
}

func (r runtimeMetrics) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func (runtimeMetrics) String() string { return "runtime-metrics" }

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
