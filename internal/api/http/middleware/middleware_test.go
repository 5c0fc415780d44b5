package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/dreamluck-server/internal/api/http/context"
	"github.com/dtroode/dreamluck-server/internal/config"
	"github.com/dtroode/dreamluck-server/internal/mocks"
	"github.com/dtroode/dreamluck-server/internal/testutil"
)

func serve(t *testing.T, mw echo.MiddlewareFunc, req *http.Request, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/dreams")
	require.NoError(t, mw(next)(c))
	return rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		setup      func(*mocks.TokenManager)
		wantStatus int
	}{
		{
			name:   "valid token",
			header: "Bearer good",
			setup: func(m *mocks.TokenManager) {
				m.On("ParseAccessToken", "good").Return("kakao:1", nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{
			name:   "rejected token",
			header: "Bearer bad",
			setup: func(m *mocks.TokenManager) {
				m.On("ParseAccessToken", "bad").Return("", errors.New("token is expired"))
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := &mocks.TokenManager{}
			if tt.setup != nil {
				tt.setup(tm)
			}
			cm := httpctx.NewManager()
			auth := NewAuthenticate(tm, cm, testutil.MakeNoopLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/dreams", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}

			var seen string
			rec := serve(t, auth.Handle, req, func(c echo.Context) error {
				seen, _ = cm.GetUserIDFromContext(c.Request().Context())
				return ok(c)
			})

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, "kakao:1", seen)
			}
			tm.AssertExpectations(t)
		})
	}
}

func TestRequireAdminToken(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
		wantStatus int
	}{
		{name: "matching", configured: "s3cret", header: "Bearer s3cret", wantStatus: http.StatusNoContent},
		{name: "wrong", configured: "s3cret", header: "Bearer nope", wantStatus: http.StatusForbidden},
		{name: "missing", configured: "s3cret", wantStatus: http.StatusForbidden},
		{name: "disabled", configured: "", header: "Bearer ", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/accounts/u1/premium", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := serve(t, RequireAdminToken(tt.configured), req, ok)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

type httpObservation struct {
	route, method string
	status        int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []httpObservation
}

func (r *recordingObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, httpObservation{route, method, status})
}

func TestLogging_RecordsStatus(t *testing.T) {
	tests := []struct {
		name       string
		next       echo.HandlerFunc
		wantStatus int
	}{
		{name: "success", next: ok, wantStatus: http.StatusNoContent},
		{
			name:       "handler error is rendered",
			next:       func(echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") },
			wantStatus: http.StatusTeapot,
		},
		{
			name:       "plain error becomes 500",
			next:       func(echo.Context) error { return errors.New("boom") },
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			l := NewLogging(testutil.MakeNoopLogger(), obs)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/dreams", nil)
			rec := serve(t, l.Handle, req, tt.next)

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.Len(t, obs.obs, 1)
			assert.Equal(t, httpObservation{"/api/v1/dreams", http.MethodPost, tt.wantStatus}, obs.obs[0])
		})
	}
}

// fakeScripter answers EVALSHA with a canned token bucket reply.
type fakeScripter struct {
	redis.Scripter
	mock.Mock
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	called := f.Called(keys[0])
	cmd := redis.NewCmd(ctx)
	if err, ok := called.Get(1).(error); ok && err != nil {
		cmd.SetErr(err)
		return cmd
	}
	cmd.SetVal(called.Get(0))
	return cmd
}

func rateLimitConfig() config.RateLimit {
	return config.RateLimit{
		Enabled:        true,
		Capacity:       10,
		RefillInterval: 6 * time.Second,
		TTL:            10 * time.Minute,
		Prefix:         "rl",
	}
}

func authedRequest(user string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dreams", nil)
	return req.WithContext(httpctx.NewManager().SetUserIDToContext(req.Context(), user))
}

func TestRateLimit(t *testing.T) {
	const key = "rl:user:kakao:1:route:POST /api/v1/dreams"

	tests := []struct {
		name          string
		reply         any
		err           error
		wantStatus    int
		wantRemaining string
		wantRetry     string
	}{
		{name: "allowed", reply: []interface{}{int64(1), int64(9), int64(0)}, wantStatus: http.StatusNoContent, wantRemaining: "9"},
		{name: "blocked", reply: []interface{}{int64(0), int64(0), int64(4200)}, wantStatus: http.StatusTooManyRequests, wantRemaining: "0", wantRetry: "5"},
		{name: "redis down fails open", err: errors.New("dial tcp: connection refused"), wantStatus: http.StatusNoContent},
		{name: "unexpected reply fails open", reply: []interface{}{int64(1)}, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := &fakeScripter{}
			rdb.On("EvalSha", key).Return(tt.reply, tt.err)

			rl := NewRateLimit(rateLimitConfig(), rdb, httpctx.NewManager(), testutil.MakeNoopLogger())
			rec := serve(t, rl.Handle, authedRequest("kakao:1"), ok)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantRemaining, rec.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After"))
			rdb.AssertExpectations(t)
		})
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	cfg := rateLimitConfig()
	cfg.Enabled = false
	rdb := &fakeScripter{}

	rl := NewRateLimit(cfg, rdb, httpctx.NewManager(), testutil.MakeNoopLogger())
	rec := serve(t, rl.Handle, authedRequest("kakao:1"), ok)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	rdb.AssertNotCalled(t, "EvalSha", mock.Anything)
}

func TestRateLimit_AnonymousKeyedByIP(t *testing.T) {
	rl := NewRateLimit(rateLimitConfig(), nil, httpctx.NewManager(), testutil.MakeNoopLogger())
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dreams", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/dreams")

	assert.Equal(t, "rl:user:ip:203.0.113.7:route:POST /api/v1/dreams", rl.key(c))
}
