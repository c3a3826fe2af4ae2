package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/signalsfoundry/rlnc-dashboard/export"
	"github.com/signalsfoundry/rlnc-dashboard/internal/config"
	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
	"github.com/signalsfoundry/rlnc-dashboard/internal/observability"
	"github.com/signalsfoundry/rlnc-dashboard/internal/server"
	"github.com/signalsfoundry/rlnc-dashboard/kb"
	"github.com/signalsfoundry/rlnc-dashboard/playback"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("dashboard: %v", err)
	}

	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP address serving the dashboard, API, WebSocket and /metrics")
	flag.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "TCP address of the gRPC health service; empty disables it")
	flag.StringVar(&cfg.Dataset, "dataset", cfg.Dataset, "JSON or YAML dataset file; empty uses the built-in dataset")
	flag.DurationVar(&cfg.PlaybackInterval, "interval", cfg.PlaybackInterval, "delay between playback steps")
	flag.IntVar(&cfg.MaxStep, "max-step", cfg.MaxStep, "last playback step before wrapping to 0")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		config.Exitf("dashboard: %v", err)
	}
	log := logging.New(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		config.Exitf("dashboard: listen http %s: %v", cfg.HTTPAddr, err)
	}
	var grpcLis net.Listener
	if cfg.GRPCAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			config.Exitf("dashboard: listen grpc %s: %v", cfg.GRPCAddr, err)
		}
	}

	if err := run(ctx, cfg, log, httpLis, grpcLis); err != nil {
		config.Exitf("dashboard: %v", err)
	}
}

// run serves until ctx is cancelled or a listener fails. grpcLis may be nil.
func run(ctx context.Context, cfg config.Config, log logging.Logger, httpLis, grpcLis net.Listener) error {
	log = logging.OrNoop(log)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	store, err := loadStore(ctx, cfg.Dataset, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	apiMetrics, err := observability.NewAPICollector(reg)
	if err != nil {
		return fmt.Errorf("api metrics: %w", err)
	}
	playbackMetrics, err := observability.NewPlaybackCollector(reg)
	if err != nil {
		return fmt.Errorf("playback metrics: %w", err)
	}

	ctl := playback.NewController(store,
		playback.WithInterval(cfg.PlaybackInterval),
		playback.WithMaxStep(cfg.MaxStep),
		playback.WithLogger(log),
		playback.WithMetricsRecorder(playbackMetrics),
	)
	defer ctl.Close()

	unsubscribeLog := ctl.Subscribe(playback.SinkFunc(func(f playback.Frame) {
		log.Debug(context.Background(), "frame",
			logging.Int("step", f.Step),
			logging.Bool("playing", f.Playing),
			logging.String("adaptive_pdr", f.AdaptivePDR),
			logging.Int("active_nodes", f.ActiveNodes),
		)
	}))
	defer unsubscribeLog()

	exp := export.NewExporter(store,
		export.WithLogger(log),
		export.WithMetricsRecorder(playbackMetrics),
	)

	srv, err := server.New(store, ctl, exp,
		server.WithLogger(log),
		server.WithAPICollector(apiMetrics),
	)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	log.Info(ctx, "serving dashboard", logging.String("addr", httpLis.Addr().String()))

	var (
		grpcSrv *grpc.Server
		hs      *health.Server
	)
	if grpcLis != nil {
		grpcSrv, hs = server.NewGRPCServer(log, apiMetrics)
		go func() {
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		log.Info(ctx, "serving gRPC health", logging.String("addr", grpcLis.Addr().String()))
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down dashboard")
	if hs != nil {
		hs.Shutdown()
	}
	// Hijacked WebSocket connections are not covered by http.Server.Shutdown.
	srv.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown failed", logging.Err(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	return runErr
}

func loadStore(ctx context.Context, path string, log logging.Logger) (*kb.KnowledgeBase, error) {
	var (
		store *kb.KnowledgeBase
		err   error
	)
	if path == "" {
		store, err = kb.Default()
		path = "built-in"
	} else {
		store, err = kb.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "loaded dataset",
		logging.String("source", path),
		logging.Int("nodes", len(store.Nodes())),
		logging.Int("samples", len(store.Samples())),
		logging.Int("clusters", len(store.ClusterStats())),
	)
	return store, nil
}
