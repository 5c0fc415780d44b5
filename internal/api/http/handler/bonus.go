package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/service"
)

// BonusService defines share bonuses and premium grants.
type BonusService interface {
	GrantShareBonus(ctx context.Context, userID string) (bool, error)
	ShareDream(ctx context.Context, userID string, dreamID uuid.UUID) (service.ShareResult, error)
	SharedDream(ctx context.Context, dreamID uuid.UUID) ([]byte, error)
	UnshareDream(ctx context.Context, userID string, dreamID uuid.UUID) error
	AdjustPremium(ctx context.Context, userID string, delta int) (model.Account, error)
}

type shareResponse struct {
	Granted  bool   `json:"granted"`
	ShareKey string `json:"share_key,omitempty"`
}

type premiumAdjustRequest struct {
	Amount int `json:"amount" validate:"required"`
}

type premiumAdjustResponse struct {
	ID           string `json:"id"`
	PremiumQuota int    `json:"premium_quota"`
}

// Bonus handles share and grant endpoints.
type Bonus struct {
	bonusService   BonusService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewBonus(bonusService BonusService, contextManager model.ContextManager, logger *logger.Logger) *Bonus {
	return &Bonus{
		bonusService:   bonusService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// GrantShare credits the daily share bonus without publishing a snapshot.
func (h *Bonus) GrantShare(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	granted, err := h.bonusService.GrantShareBonus(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Bonus handler: share bonus failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, shareResponse{Granted: granted})
}

// ShareDream publishes a completed dream and credits the daily share bonus.
func (h *Bonus) ShareDream(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	res, err := h.bonusService.ShareDream(c.Request().Context(), userID, id)
	if err != nil {
		h.logger.Warn("Bonus handler: share dream failed",
			"user_id", userID,
			"dream_id", id.String(),
			"error", err.Error())
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, shareResponse{Granted: res.Granted, ShareKey: res.ShareKey})
}

// Shared serves the public snapshot of a shared dream.
func (h *Bonus) Shared(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	body, err := h.bonusService.SharedDream(c.Request().Context(), id)
	if err != nil {
		return handleError(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// UnshareDream withdraws a published snapshot.
func (h *Bonus) UnshareDream(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.bonusService.UnshareDream(c.Request().Context(), userID, id); err != nil {
		h.logger.Warn("Bonus handler: unshare dream failed",
			"user_id", userID,
			"dream_id", id.String(),
			"error", err.Error())
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AdjustPremium applies an operator grant (positive) or revocation (negative).
func (h *Bonus) AdjustPremium(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return handleError(c, echo.NewHTTPError(http.StatusBadRequest, "missing account id"))
	}

	var req premiumAdjustRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}

	account, err := h.bonusService.AdjustPremium(c.Request().Context(), userID, req.Amount)
	if err != nil {
		h.logger.Error("Bonus handler: premium adjustment failed",
			"user_id", userID,
			"amount", req.Amount,
			"error", err.Error())
		return handleError(c, err)
	}

	h.logger.Info("Bonus handler: premium adjusted",
		"user_id", userID,
		"amount", req.Amount)
	return c.JSON(http.StatusOK, premiumAdjustResponse{ID: account.ID, PremiumQuota: account.PremiumQuota})
}
