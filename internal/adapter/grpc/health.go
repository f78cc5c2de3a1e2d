package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter keeps the standard gRPC health service in line with the
// reachability of the user store.
type HealthReporter struct {
	*health.Server
	pinger  Pinger
	service string
	timeout time.Duration
	log     *zap.Logger
}

// NewHealthReporter creates a reporter for service. Both service and the
// overall ("") status start as NOT_SERVING until the first check.
func NewHealthReporter(pinger Pinger, service string, log *zap.Logger) *HealthReporter {
	h := &HealthReporter{
		Server:  health.NewServer(),
		pinger:  pinger,
		service: service,
		timeout: 2 * time.Second,
		log:     log,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Probe pings the store once and publishes the result.
func (h *HealthReporter) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(ctx); err != nil {
		h.log.Warn("store health check failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.set(st)
	return st
}

// Run checks the store every interval until ctx is done, then marks the
// service as shutting down.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

func (h *HealthReporter) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.SetServingStatus("", st)
	h.SetServingStatus(h.service, st)
}
