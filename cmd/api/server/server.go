package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"user-crud-service/cmd/api/di"
	grpcadapter "user-crud-service/internal/adapter/grpc"
	"user-crud-service/internal/config"
	"user-crud-service/pkg/ratelimit"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	healthInterval   = 10 * time.Second
	limiterEvictTick = time.Minute
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
	GRPC   *grpc.Server

	health     *grpcadapter.HealthReporter
	localLimit *ratelimit.LocalLimiter

	ready    chan struct{}
	httpAddr net.Addr
	grpcAddr net.Addr
}

// New creates a new server instance from the wired container
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	return &Server{
		Config:     cfg,
		Logger:     l,
		HTTP:       SetupGinServer(c, httpAddress(cfg), l),
		GRPC:       SetupGRPC(c.Health, c.RateLimiter),
		health:     c.Health,
		localLimit: c.LocalLimit,
		ready:      make(chan struct{}),
	}
}

// Run serves HTTP and gRPC until ctx is canceled or either server fails,
// then shuts both down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}

	httpLis, err := lc.Listen(ctx, "tcp", httpAddress(s.Config))
	if err != nil {
		return fmt.Errorf("failed to listen HTTP: %w", err)
	}
	grpcLis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("failed to listen gRPC: %w", err)
	}
	s.httpAddr, s.grpcAddr = httpLis.Addr(), grpcLis.Addr()
	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("HTTP server running", zap.String("address", s.httpAddr.String()))
		if err := s.HTTP.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", s.grpcAddr.String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.health.Run(gctx, healthInterval)
		return nil
	})

	if s.localLimit != nil {
		g.Go(func() error {
			s.localLimit.Run(gctx, limiterEvictTick)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

// Ready is closed once both listeners are bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// HTTPAddr returns the bound HTTP address. Valid after Ready.
func (s *Server) HTTPAddr() net.Addr {
	return s.httpAddr
}

// GRPCAddr returns the bound gRPC address. Valid after Ready.
func (s *Server) GRPCAddr() net.Addr {
	return s.grpcAddr
}

func (s *Server) shutdown() error {
	timeout := time.Duration(s.Config.App.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.Logger.Info("starting graceful shutdown", zap.Duration("timeout", timeout))

	var errs []error

	s.Logger.Info("shutting down HTTP server...")
	if err := s.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	s.Logger.Info("shutting down gRPC server...")
	stopped := make(chan struct{})
	go func() {
		s.GRPC.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.GRPC.Stop()
		errs = append(errs, errors.New("gRPC graceful stop timed out"))
	}

	return errors.Join(errs...)
}

// grpcAddress returns the gRPC server address
func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.App.GRPCPort
}

// httpAddress returns the HTTP server address
func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
