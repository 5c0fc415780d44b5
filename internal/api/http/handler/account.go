package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// AccountService defines account lifecycle operations.
type AccountService interface {
	Bootstrap(ctx context.Context, userID, email string) (model.Account, bool, error)
	CompleteSignup(ctx context.Context, userID string, profile model.Profile) (model.Account, error)
	Get(ctx context.Context, userID string) (model.Account, error)
	Delete(ctx context.Context, userID string) error
}

type bootstrapRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

type profileRequest struct {
	Name      string `json:"name" validate:"max=50"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	Birthdate string `json:"birthdate" validate:"required,datetime=2006-01-02"`
	BirthTime string `json:"birth_time" validate:"omitempty,datetime=15:04|eq=unknown"`
	MBTI      string `json:"mbti" validate:"omitempty,mbti|eq=unknown"`
	Gender    string `json:"gender" validate:"max=20"`
}

// Account handles account endpoints.
type Account struct {
	accountService AccountService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAccount(accountService AccountService, contextManager model.ContextManager, logger *logger.Logger) *Account {
	return &Account{
		accountService: accountService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Bootstrap creates the caller's account on first sign-in. It answers 201 when
// the account was created and 200 when it already existed.
func (h *Account) Bootstrap(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	var req bootstrapRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	account, created, err := h.accountService.Bootstrap(c.Request().Context(), userID, strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("Account handler: bootstrap failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, newAccountResponse(account))
}

// CompleteSignup stores the caller's profile.
func (h *Account) CompleteSignup(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	var req profileRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	account, err := h.accountService.CompleteSignup(c.Request().Context(), userID, model.Profile{
		Name:      req.Name,
		Email:     req.Email,
		Birthdate: req.Birthdate,
		BirthTime: req.BirthTime,
		MBTI:      req.MBTI,
		Gender:    req.Gender,
	})
	if err != nil {
		h.logger.Error("Account handler: complete signup failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}

	h.logger.Info("Account handler: signup completed", "user_id", userID)
	return c.JSON(http.StatusOK, newAccountResponse(account))
}

func (h *Account) Get(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	account, err := h.accountService.Get(c.Request().Context(), userID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, newAccountResponse(account))
}

// Delete removes the caller's account and every dream record.
func (h *Account) Delete(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.accountService.Delete(c.Request().Context(), userID); err != nil {
		h.logger.Error("Account handler: delete failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
