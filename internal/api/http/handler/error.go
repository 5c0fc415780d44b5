package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/model"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorMappings is checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{clock.ErrUnavailable, http.StatusServiceUnavailable, "clock_unavailable", "server clock is unavailable"},
	{model.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded", "no interpretation requests left"},
	{model.ErrAccountNotFound, http.StatusNotFound, "account_not_found", "account not found"},
	{model.ErrNotFound, http.StatusNotFound, "not_found", "record not found"},
	{model.ErrSignupIncomplete, http.StatusConflict, "signup_incomplete", "signup is not complete"},
	{model.ErrProfileIncomplete, http.StatusConflict, "profile_incomplete", "birthdate, birth time and MBTI are required"},
	{model.ErrDreamNotReady, http.StatusConflict, "dream_not_ready", "dream interpretation is not complete"},
	{model.ErrVersionConflict, http.StatusConflict, "conflict", "account changed concurrently, retry"},
	{model.ErrAlreadyExists, http.StatusConflict, "already_exists", "already exists"},
	{model.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount", "amount must be non-zero"},
	{model.ErrGenerationFailed, http.StatusBadGateway, "generation_failed", "interpretation could not be generated"},
	{model.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable", "storage is unavailable"},
}

// classify maps err to an HTTP status and response body.
func classify(err error) (int, errorResponse) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, errorResponse{Error: httpCode(httpErr.Code), Message: httpMessage(httpErr)}
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, errorResponse{Error: m.code, Message: m.message}
		}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"}
}

func handleError(c echo.Context, err error) error {
	status, body := classify(err)
	return c.JSON(status, body)
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	default:
		return "error"
	}
}

func httpMessage(e *echo.HTTPError) string {
	if s, ok := e.Message.(string); ok {
		return s
	}
	return http.StatusText(e.Code)
}

// ErrorHandler renders errors that escape handlers and middleware, such as
// unknown routes, in the same body shape as handler errors.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := classify(err)
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
