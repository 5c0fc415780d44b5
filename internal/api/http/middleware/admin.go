package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdminToken admits requests bearing the static operator token. An empty
// token disables the guarded routes entirely.
func RequireAdminToken(adminToken string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request())
			if adminToken == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":   "forbidden",
					"message": "admin token required",
				})
			}
			return next(c)
		}
	}
}
