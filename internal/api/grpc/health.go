// Package grpc exposes the standard gRPC health service so orchestrators can
// probe the backend without going through the HTTP API.
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"bluecollar-backend/internal/api/grpc/interceptor"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/service"
)

// ServiceName is the health entry tracking the booking backend as a whole.
const ServiceName = "bluecollar.Backend"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	*health.Server
	pinger Pinger
}

func NewHealthServer(pinger Pinger) *HealthServer {
	return &HealthServer{Server: health.NewServer(), pinger: pinger}
}

// Probe pings the store once and publishes the result.
func (h *HealthServer) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if h.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(pingCtx); err != nil {
			logger.Warn("Health probe failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.SetServingStatus("", st)
	h.SetServingStatus(ServiceName, st)
	return st
}

// Run probes every interval until ctx is done, then marks everything as
// not serving.
func (h *HealthServer) Run(ctx context.Context, interval time.Duration) {
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

// NewServer builds the gRPC server carrying the health and reflection services.
func NewServer(hs *HealthServer, auth service.AuthService) *grpc.Server {
	authInterceptor := interceptor.NewAuthInterceptor(auth)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
		grpc.StreamInterceptor(authInterceptor.Stream()),
	)
	healthpb.RegisterHealthServer(s, hs)

	// Register reflection service for grpcurl
	reflection.Register(s)
	return s
}
