package bootstrap

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func check(t *testing.T, hs *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestApplyProbes(t *testing.T) {
	hs := health.NewServer()
	schedulerUp := true

	probes := map[string]Probe{
		"scheduler": func() bool { return schedulerUp },
		"tasks":     func() bool { return true },
	}

	applyProbes(hs, probes)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, hs, "scheduler"))

	schedulerUp = false
	applyProbes(hs, probes)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, hs, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, hs, "scheduler"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, hs, "tasks"))
}

func TestHealthGateway(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	gateway, conn, err := newHealthGateway(lis.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	w := httptest.NewRecorder()
	gateway.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	w = httptest.NewRecorder()
	gateway.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
