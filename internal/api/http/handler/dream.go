package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/service"
)

// DreamService defines interpretation requests and their history.
type DreamService interface {
	RequestFreeInterpretation(ctx context.Context, userID, dreamText string) (service.FreeResult, error)
	RequestPremiumInterpretation(ctx context.Context, userID, dreamText string) (service.PremiumResult, error)
	GetDream(ctx context.Context, userID string, id uuid.UUID) (model.DreamRecord, error)
	ListDreams(ctx context.Context, userID string, limit int) ([]model.DreamRecord, error)
	GetPremiumDream(ctx context.Context, userID string, id uuid.UUID) (model.PremiumDreamRecord, error)
	ListPremiumDreams(ctx context.Context, userID string, limit int) ([]model.PremiumDreamRecord, error)
}

type dreamRequest struct {
	DreamText string `json:"dream_text" validate:"required,max=2000"`
}

type freeInterpretationResponse struct {
	RecordID       string `json:"record_id"`
	Interpretation string `json:"interpretation"`
	Color          string `json:"color"`
}

type premiumInterpretationResponse struct {
	RecordID        string   `json:"record_id"`
	Interpretation  string   `json:"interpretation"`
	MBTISummary     string   `json:"mbti_summary"`
	SajuSummary     string   `json:"saju_summary"`
	LuckyNumberSets []string `json:"lucky_number_sets"`
}

// Dream handles interpretation endpoints.
type Dream struct {
	dreamService   DreamService
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewDream(dreamService DreamService, contextManager model.ContextManager, logger *logger.Logger) *Dream {
	return &Dream{
		dreamService:   dreamService,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (h *Dream) bindDream(c echo.Context) (string, error) {
	var req dreamRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	req.DreamText = strings.TrimSpace(req.DreamText)
	if err := c.Validate(&req); err != nil {
		return "", err
	}
	return req.DreamText, nil
}

// CreateFree spends a free request and returns the interpretation and color.
func (h *Dream) CreateFree(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	text, err := h.bindDream(c)
	if err != nil {
		return handleError(c, err)
	}

	res, err := h.dreamService.RequestFreeInterpretation(c.Request().Context(), userID, text)
	if err != nil {
		h.logger.Warn("Dream handler: free interpretation failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}

	return c.JSON(http.StatusCreated, freeInterpretationResponse{
		RecordID:       res.RecordID.String(),
		Interpretation: res.Interpretation,
		Color:          res.Color,
	})
}

// CreatePremium spends a premium request.
func (h *Dream) CreatePremium(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	text, err := h.bindDream(c)
	if err != nil {
		return handleError(c, err)
	}

	res, err := h.dreamService.RequestPremiumInterpretation(c.Request().Context(), userID, text)
	if err != nil {
		h.logger.Warn("Dream handler: premium interpretation failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}

	sets := res.LuckyNumberSets
	if sets == nil {
		sets = []string{}
	}
	return c.JSON(http.StatusCreated, premiumInterpretationResponse{
		RecordID:        res.RecordID.String(),
		Interpretation:  res.Interpretation,
		MBTISummary:     res.MBTISummary,
		SajuSummary:     res.SajuSummary,
		LuckyNumberSets: sets,
	})
}

func (h *Dream) Get(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	record, err := h.dreamService.GetDream(c.Request().Context(), userID, id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, newDreamResponse(record))
}

// List returns the caller's free dreams, newest first.
func (h *Dream) List(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}
	limit, err := queryLimit(c)
	if err != nil {
		return handleError(c, err)
	}

	records, err := h.dreamService.ListDreams(c.Request().Context(), userID, limit)
	if err != nil {
		h.logger.Error("Dream handler: list dreams failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, mapList(records, newDreamResponse))
}

func (h *Dream) GetPremium(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	record, err := h.dreamService.GetPremiumDream(c.Request().Context(), userID, id)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, newPremiumDreamResponse(record))
}

func (h *Dream) ListPremium(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}
	limit, err := queryLimit(c)
	if err != nil {
		return handleError(c, err)
	}

	records, err := h.dreamService.ListPremiumDreams(c.Request().Context(), userID, limit)
	if err != nil {
		h.logger.Error("Dream handler: list premium dreams failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, mapList(records, newPremiumDreamResponse))
}
