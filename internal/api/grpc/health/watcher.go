// Package health keeps the gRPC health status in step with the database.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/dreamluck-server/internal/logger"
)

// ServiceName is the health service name reported alongside the overall "" status.
const ServiceName = "dreamluck.Server"

const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher pings the database on an interval and flips SERVING / NOT_SERVING.
type Watcher struct {
	db       Pinger
	server   *health.Server
	interval time.Duration
	logger   *logger.Logger
	serving  bool
}

func NewWatcher(db Pinger, server *health.Server, interval time.Duration, logger *logger.Logger) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Watcher{db: db, server: server, interval: interval, logger: logger}
}

// Check pings once and updates the health status.
func (w *Watcher) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := w.db.Ping(ctx)
	ok := err == nil

	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	w.server.SetServingStatus("", status)
	w.server.SetServingStatus(ServiceName, status)

	if ok != w.serving {
		if ok {
			w.logger.Info("Health: database reachable, serving")
		} else {
			w.logger.Warn("Health: database unreachable, not serving", "error", err.Error())
		}
		w.serving = ok
	}
	return ok
}

// Run checks immediately and then on every tick until ctx is done. On return
// the health server is shut down so clients see NOT_SERVING.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			w.server.Shutdown()
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
