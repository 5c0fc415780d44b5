package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// Authenticate validates bearer tokens and injects the user id into the request context.
type Authenticate struct {
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuthenticate(tokenManager model.TokenManager, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenManager: tokenManager, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid token with 401.
func (m *Authenticate) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request())
		if !ok {
			return unauthorized(c, "missing authorization token")
		}

		userID, err := m.tokenManager.ParseAccessToken(token)
		if err != nil || userID == "" {
			m.logger.Debug("Authenticate: token rejected", "path", c.Path())
			return unauthorized(c, "invalid authorization token")
		}

		req := c.Request()
		c.SetRequest(req.WithContext(m.contextManager.SetUserIDToContext(req.Context(), userID)))
		return next(c)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
