package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/processdash/processdash/server/internal/alerts"
	"github.com/processdash/processdash/server/internal/api"
	"github.com/processdash/processdash/server/internal/config"
	"github.com/processdash/processdash/server/internal/health"
	"github.com/processdash/processdash/server/internal/metrics"
	"github.com/processdash/processdash/server/internal/records"
	"github.com/processdash/processdash/server/internal/store"
	"github.com/processdash/processdash/server/internal/ws"
)

// source is what every consumer of records reads through.
type source interface {
	Load(ctx context.Context) (records.Set, error)
}

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses defaults plus PORT, DATA_FILE_PATH and LOG_LEVEL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(newLogHandler(os.Stdout, cfg.Log)))

	slog.Info("processdash-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"data_path", cfg.Data.Path,
		"cache", cfg.Data.Cache.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs := afero.NewOsFs()
	reg := metrics.New()

	// Record source: read the file per load, optionally cached until it changes.
	var src source = records.NewFileSource(fs, cfg.Data.Path)
	if cfg.Data.Cache.Enabled {
		st := store.New(src, cfg.Data.Cache.TTL)
		go func() {
			if err := st.Watch(ctx, cfg.Data.Path); err != nil {
				slog.Warn("file watch unavailable, cache relies on ttl", "err", err)
			}
		}()
		src = st
	}
	src = metrics.InstrumentSource(src, reg)

	// Alerts engine evaluates rules against the newest record.
	alertEngine := alerts.New(cfg.Alerts)
	go alertEngine.Run(ctx, src, cfg.Alerts.Interval)

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", reg)

	if cfg.Stream.Enabled {
		hub := ws.New(src, cfg.Stream.Count, cfg.Stream.Interval, cfg.Server.CORS.AllowOrigin)
		go hub.Run(ctx)
		httpMux.Handle("/ws/stream", hub)
	}

	httpMux.Handle("/", api.New(src, api.Options{
		Alerts:         alertEngine,
		Metrics:        reg,
		AllowOrigin:    cfg.Server.CORS.AllowOrigin,
		RequestTimeout: cfg.Server.RequestTimeout,
	}))

	// Optional gRPC health endpoint reporting source file availability.
	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort > 0 {
		mon := health.New(fs, cfg.Data.Path, health.DefaultInterval)
		go mon.Run(ctx)

		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(health.LogInterceptor()))
		healthpb.RegisterHealthServer(grpcSrv, mon.Server())

		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			slog.Error("failed to listen on gRPC port",
				"port", cfg.Server.GRPCPort, "err", err)
			os.Exit(1)
		}
		go func() {
			slog.Info("gRPC health listening", "port", cfg.Server.GRPCPort)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      httpMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("processdash-server shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}

func newLogHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
