package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/service"
)

// ArtifactService resolves the weekly lucky numbers.
type ArtifactService interface {
	WeeklyArtifacts(ctx context.Context, userID string) (service.WeeklyArtifacts, error)
}

type weeklyArtifactsResponse struct {
	WeekKey     string  `json:"week_key"`
	Number      int     `json:"number"`
	PremiumSets [][]int `json:"premium_sets"`
}

type Artifacts struct {
	artifactService ArtifactService
	contextManager  model.ContextManager
	logger          *logger.Logger
}

func NewArtifacts(artifactService ArtifactService, contextManager model.ContextManager, logger *logger.Logger) *Artifacts {
	return &Artifacts{
		artifactService: artifactService,
		contextManager:  contextManager,
		logger:          logger,
	}
}

func (h *Artifacts) Weekly(c echo.Context) error {
	userID, err := currentUser(c, h.contextManager)
	if err != nil {
		return handleError(c, err)
	}

	res, err := h.artifactService.WeeklyArtifacts(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Artifacts handler: weekly artifacts failed",
			"user_id", userID,
			"error", err.Error())
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, weeklyArtifactsResponse{
		WeekKey:     res.WeekKey,
		Number:      res.Number,
		PremiumSets: res.PremiumSets,
	})
}
