package middleware

import (
	"context"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/dreamluck-server/internal/logger"
)

// InterceptorLogger routes go-grpc-middleware call logs into the application logger.
func InterceptorLogger(l *logger.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), "gRPC: "+msg, fields...)
	})
}

// Recovery turns a handler panic into codes.Internal and logs it.
func Recovery(l *logger.Logger) func(p any) error {
	return func(p any) error {
		l.Error("gRPC: recovered from panic", "panic", p)
		return status.Error(codes.Internal, "internal server error")
	}
}
