package server

import (
	grpcadapter "user-crud-service/internal/adapter/grpc"
	"user-crud-service/internal/adapter/grpc/middleware"
	"user-crud-service/pkg/logger"

	grpc "google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// SetupGRPC creates the gRPC server exposing the health service
func SetupGRPC(health *grpcadapter.HealthReporter, rateLimiter *middleware.RateLimiter) *grpc.Server {
	// Create gRPC server with request ID and rate limit interceptors
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)
	healthpb.RegisterHealthServer(grpcServer, health)
	reflection.Register(grpcServer)

	return grpcServer
}
