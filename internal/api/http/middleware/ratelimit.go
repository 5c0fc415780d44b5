package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dtroode/dreamluck-server/internal/config"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// tokenBucket refills one token per interval up to capacity and takes one per
// call. It returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 then
  local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals)
    last_refill = last_refill + intervals * interval_ms
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// RateLimit throttles expensive routes per user and route with a Redis token
// bucket. Redis failures let the request through.
type RateLimit struct {
	cfg            config.RateLimit
	rdb            redis.Scripter
	contextManager model.ContextManager
	logger         *logger.Logger
	now            func() time.Time
}

func NewRateLimit(cfg config.RateLimit, rdb redis.Scripter, contextManager model.ContextManager, logger *logger.Logger) *RateLimit {
	return &RateLimit{
		cfg:            cfg,
		rdb:            rdb,
		contextManager: contextManager,
		logger:         logger,
		now:            time.Now,
	}
}

func (r *RateLimit) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	if !r.cfg.Enabled || r.rdb == nil || r.cfg.Capacity <= 0 {
		return next
	}

	return func(c echo.Context) error {
		key := r.key(c)
		ttl := int64(r.cfg.TTL / time.Second)
		if ttl < 1 {
			ttl = 1
		}

		vals, err := tokenBucket.Run(c.Request().Context(), r.rdb, []string{key},
			r.now().UnixMilli(),
			r.cfg.Capacity,
			r.cfg.RefillInterval.Milliseconds(),
			ttl,
		).Int64Slice()
		if err != nil || len(vals) != 3 {
			r.logger.Warn("RateLimit: limiter unavailable, allowing request",
				"key", key,
				"error", fmt.Sprint(err))
			return next(c)
		}

		allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]
		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(r.cfg.Capacity))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			secs := int(math.Ceil(float64(retryMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
		return next(c)
	}
}

func (r *RateLimit) key(c echo.Context) string {
	user, ok := r.contextManager.GetUserIDFromContext(c.Request().Context())
	if !ok {
		user = "ip:" + c.RealIP()
	}
	return strings.Join([]string{r.cfg.Prefix, "user", user, "route", c.Request().Method + " " + c.Path()}, ":")
}
