package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"bluecollar-backend/internal/repository/memory"
	"bluecollar-backend/internal/security"
	"bluecollar-backend/internal/service"
)

type switchPinger struct {
	down atomic.Bool
}

func (p *switchPinger) Ping(context.Context) error {
	if p.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func dialHealth(t *testing.T, hs *HealthServer) healthpb.HealthClient {
	t.Helper()
	store := memory.NewStore()
	auth := service.NewAuthService(store.UserRepository, security.NewTokenManager("0123456789abcdef0123456789abcdef", 0))

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(hs, auth)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestHealthServer_Check(t *testing.T) {
	ctx := context.Background()
	pinger := &switchPinger{}
	hs := NewHealthServer(pinger)
	client := dialHealth(t, hs)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hs.Probe(ctx))
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	pinger.down.Store(true)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, hs.Probe(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestHealthServer_RunStopsOnCancel(t *testing.T) {
	hs := NewHealthServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hs.Run(ctx, time.Second)
		close(done)
	}()
	cancel()
	<-done

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
