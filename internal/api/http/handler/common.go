package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/model"
)

var errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "missing authenticated user")

func currentUser(c echo.Context, cm model.ContextManager) (string, error) {
	userID, ok := cm.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return "", errUnauthenticated
	}
	return userID, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// queryLimit reads the optional limit query parameter. Zero lets the service
// apply its default.
func queryLimit(c echo.Context) (int, error) {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
	}
	if limit < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must not be negative")
	}
	return limit, nil
}
