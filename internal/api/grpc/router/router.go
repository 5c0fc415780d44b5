package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/dreamluck-server/internal/api/grpc/middleware"
	"github.com/dtroode/dreamluck-server/internal/logger"
)

// Router assembles the ops gRPC server.
type Router struct {
	health *health.Server
	logger *logger.Logger
}

// New creates a Router serving the given health server.
func New(health *health.Server, logger *logger.Logger) *Router {
	return &Router{health: health, logger: logger}
}

// Register returns a gRPC server exposing grpc.health.v1 and reflection.
func (r *Router) Register() *grpc.Server {
	logOpts := []logging.Option{logging.WithLogOnEvents(logging.FinishCall)}
	recoveryOpts := []recovery.Option{recovery.WithRecoveryHandler(middleware.Recovery(r.logger))}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(recoveryOpts...),
			logging.UnaryServerInterceptor(middleware.InterceptorLogger(r.logger), logOpts...),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpts...),
			logging.StreamServerInterceptor(middleware.InterceptorLogger(r.logger), logOpts...),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)
	return s
}
