package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/logger"
)

// HTTPObserver receives one observation per served request.
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}

// Logging logs every request and reports it to an HTTPObserver.
type Logging struct {
	logger   *logger.Logger
	observer HTTPObserver
}

func NewLogging(logger *logger.Logger, observer HTTPObserver) *Logging {
	return &Logging{logger: logger, observer: observer}
}

func (l *Logging) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)
		if err != nil {
			// Commit the response so the logged status is the one sent.
			c.Error(err)
		}

		elapsed := time.Since(start)
		req := c.Request()
		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}

		if l.observer != nil {
			l.observer.ObserveHTTP(route, req.Method, status, elapsed)
		}

		args := []any{
			"method", req.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		switch {
		case status >= 500:
			l.logger.Error("HTTP request failed", args...)
		case status >= 400:
			l.logger.Warn("HTTP request rejected", args...)
		default:
			l.logger.Info("HTTP request completed", args...)
		}
		return nil
	}
}
