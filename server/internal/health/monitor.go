package health

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service that tracks the record source.
const ServiceName = "processdash.Data"

// DefaultInterval is how often the source file is probed.
const DefaultInterval = 10 * time.Second

var errNotRegular = errors.New("source path is a directory")

// Monitor probes the source file and reports its status to a gRPC health server.
type Monitor struct {
	fs       afero.Fs
	path     string
	interval time.Duration
	srv      *grpchealth.Server
	last     healthpb.HealthCheckResponse_ServingStatus
}

// New creates a Monitor for path on fs. A non-positive interval uses
// DefaultInterval. Both services start as NOT_SERVING until the first probe.
func New(fs afero.Fs, path string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{
		fs:       fs,
		path:     path,
		interval: interval,
		srv:      grpchealth.NewServer(),
		last:     healthpb.HealthCheckResponse_UNKNOWN,
	}
	m.srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	m.srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return m
}

// Server returns the health service to register on a grpc.Server.
func (m *Monitor) Server() *grpchealth.Server { return m.srv }

// Run probes immediately and then every interval until ctx is cancelled.
// On return every service is marked NOT_SERVING and watchers are released.
func (m *Monitor) Run(ctx context.Context) {
	m.check()

	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.srv.Shutdown()
			return
		case <-t.C:
			m.check()
		}
	}
}

// check stats the source file. A readable regular file is SERVING.
func (m *Monitor) check() {
	status := healthpb.HealthCheckResponse_SERVING
	fi, err := m.fs.Stat(m.path)
	switch {
	case err != nil:
		status = healthpb.HealthCheckResponse_NOT_SERVING
	case fi.IsDir():
		status = healthpb.HealthCheckResponse_NOT_SERVING
		err = errNotRegular
	}

	if status != m.last {
		if err != nil {
			slog.Warn("health: source unavailable", "path", m.path, "err", err)
		} else {
			slog.Info("health: source available", "path", m.path)
		}
	}
	m.set(status)
}

func (m *Monitor) set(status healthpb.HealthCheckResponse_ServingStatus) {
	m.last = status
	m.srv.SetServingStatus(ServiceName, status)
	m.srv.SetServingStatus("", status)
}
