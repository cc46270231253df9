package grpc

import (
	"context"
	"log"
	"net"
	"sort"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the whole storefront.
const ServiceName = "storefront"

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// HealthServer exposes grpc.health.v1 for the storefront and each of its
// backing stores. Store status is refreshed by Probe.
type HealthServer struct {
	server  *grpc.Server
	health  *health.Server
	checks  map[string]Check
	timeout time.Duration
}

func NewHealthServer(checks map[string]Check, timeout time.Duration) *HealthServer {
	h := &HealthServer{
		server:  grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
		health:  health.NewServer(),
		checks:  checks,
		timeout: timeout,
	}
	healthpb.RegisterHealthServer(h.server, h.health)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(h.server)

	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthServer) Serve(lis net.Listener) error {
	return h.server.Serve(lis)
}

// Probe runs every check and publishes the result. The storefront is serving
// only when all checks pass.
func (h *HealthServer) Probe(ctx context.Context) bool {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := h.checks[name](checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			log.Printf("health check %s failed: %v", name, err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			healthy = false
		}
		h.health.SetServingStatus(name, status)
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
	h.health.SetServingStatus("", status)
	return healthy
}

// Run probes immediately and then on every tick until ctx is done.
func (h *HealthServer) Run(ctx context.Context, every time.Duration) {
	h.Probe(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
