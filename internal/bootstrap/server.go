package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/skyreserve/config"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	probeInterval   = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Probe reports whether a background component is still running.
type Probe func() bool

type Servers struct {
	grpcServer  *grpc.Server
	httpServer  *http.Server
	health      *health.Server
	gatewayConn *grpc.ClientConn
}

// Run serves the gin router over HTTP and the gRPC health service, and
// blocks until ctx is cancelled or a server fails. Probes drive the
// per-component gRPC health status, also exposed over HTTP as /healthz.
func Run(ctx context.Context, cfg *config.Config, router *gin.Engine, probes map[string]Probe, logger *slog.Logger) error {
	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	s, err := newServers(cfg.HTTP.Address, lis.Addr().String(), router)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer s.gatewayConn.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc server listening", slog.String("addr", lis.Addr().String()))
		return s.grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		watchProbes(gctx, s.health, probes, probeInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func newServers(httpAddr, grpcTarget string, router *gin.Engine) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	reflection.Register(grpcSrv)

	gateway, conn, err := newHealthGateway(grpcTarget)
	if err != nil {
		return nil, err
	}
	router.GET("/healthz", gin.WrapH(gateway))

	return &Servers{
		grpcServer:  grpcSrv,
		httpServer:  &http.Server{Addr: httpAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		health:      hs,
		gatewayConn: conn,
	}, nil
}

// newHealthGateway bridges GET /healthz to the gRPC health service.
func newHealthGateway(grpcTarget string) (*runtime.ServeMux, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(grpcTarget, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial gRPC health %s: %w", grpcTarget, err)
	}
	mux := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))
	return mux, conn, nil
}

func watchProbes(ctx context.Context, hs *health.Server, probes map[string]Probe, interval time.Duration) {
	applyProbes(hs, probes)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			applyProbes(hs, probes)
		}
	}
}

// applyProbes sets each component's status; the overall ("") status is
// SERVING only while every probe passes.
func applyProbes(hs *health.Server, probes map[string]Probe) {
	overall := healthpb.HealthCheckResponse_SERVING
	for name, probe := range probes {
		status := healthpb.HealthCheckResponse_SERVING
		if !probe() {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus(name, status)
	}
	hs.SetServingStatus("", overall)
}
