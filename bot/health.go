package bot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"auction-bot/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthPb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the service reported by the health endpoint.
const ServiceName = "auction-bot"

// healthServer reports SERVING once the chat client is ready and the reaper
// runs, and NOT_SERVING otherwise.
type healthServer struct {
	ready  *atomic.Bool
	logger *zap.SugaredLogger
}

func (s *healthServer) Check(ctx context.Context, in *healthPb.HealthCheckRequest) (*healthPb.HealthCheckResponse, error) {
	if in.Service != "" && in.Service != ServiceName {
		return &healthPb.HealthCheckResponse{Status: healthPb.HealthCheckResponse_SERVICE_UNKNOWN}, nil
	}
	if !s.ready.Load() {
		s.logger.Debugw("gRPC health check not serving", "service", in.Service)
		return &healthPb.HealthCheckResponse{Status: healthPb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthPb.HealthCheckResponse{Status: healthPb.HealthCheckResponse_SERVING}, nil
}

func (s *healthServer) List(ctx context.Context, _ *healthPb.HealthListRequest) (*healthPb.HealthListResponse, error) {
	resp, err := s.Check(ctx, &healthPb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return nil, err
	}
	return &healthPb.HealthListResponse{
		Statuses: map[string]*healthPb.HealthCheckResponse{ServiceName: resp},
	}, nil
}

func (s *healthServer) Watch(in *healthPb.HealthCheckRequest, srv healthPb.Health_WatchServer) error {
	return status.Error(codes.Unimplemented, "Watch is not implemented")
}

// Servers runs the optional metrics and health listeners.
type Servers struct {
	MetricsAddr string
	HealthAddr  string
	Logger      *zap.SugaredLogger

	ready atomic.Bool
}

// SetReady flips the health status.
func (s *Servers) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Run serves until ctx is cancelled. Listeners with an empty address are
// skipped.
func (s *Servers) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.MetricsAddr != "" {
		metrics.Register()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: s.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			s.Logger.Infow("metrics server listening", "addr", s.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if s.HealthAddr != "" {
		lis, err := net.Listen("tcp", s.HealthAddr)
		if err != nil {
			return fmt.Errorf("health server: %w", err)
		}
		srv := grpc.NewServer()
		healthPb.RegisterHealthServer(srv, &healthServer{ready: &s.ready, logger: s.Logger})
		g.Go(func() error {
			s.Logger.Infow("health server listening", "addr", lis.Addr().String())
			return srv.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			srv.GracefulStop()
			return nil
		})
	}

	return g.Wait()
}
