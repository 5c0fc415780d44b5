package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/dtroode/dreamluck-server/internal/api/http/handler"
	"github.com/dtroode/dreamluck-server/internal/api/http/middleware"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// Services bundles what the handlers call into.
type Services struct {
	Accounts  handler.AccountService
	Dreams    handler.DreamService
	Bonus     handler.BonusService
	Artifacts handler.ArtifactService
	Database  handler.Pinger
}

// Router builds the public HTTP API.
type Router struct {
	services       Services
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	rateLimit      *middleware.RateLimit
	observer       middleware.HTTPObserver
	metrics        http.Handler
	adminToken     string
	logger         *logger.Logger
}

func New(
	services Services,
	tokenManager model.TokenManager,
	contextManager model.ContextManager,
	rateLimit *middleware.RateLimit,
	observer middleware.HTTPObserver,
	metrics http.Handler,
	adminToken string,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		tokenManager:   tokenManager,
		contextManager: contextManager,
		rateLimit:      rateLimit,
		observer:       observer,
		metrics:        metrics,
		adminToken:     adminToken,
		logger:         logger,
	}
}

// Register returns an echo instance with every route and middleware installed.
func (r *Router) Register() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	logging := middleware.NewLogging(r.logger, r.observer)
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("64K"))
	e.Use(logging.Handle)

	health := handler.NewHealth(r.services.Database)
	e.GET("/healthz", health.Check)
	if r.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.metrics))
	}

	authenticate := middleware.NewAuthenticate(r.tokenManager, r.contextManager, r.logger)
	api := e.Group("/api/v1")

	admin := api.Group("/admin", middleware.RequireAdminToken(r.adminToken))
	bonus := handler.NewBonus(r.services.Bonus, r.contextManager, r.logger)
	admin.POST("/accounts/:id/premium", bonus.AdjustPremium)
	api.GET("/shares/:id", bonus.Shared)

	user := api.Group("", authenticate.Handle)
	r.registerAccountRoutes(user)
	r.registerDreamRoutes(user)

	user.POST("/bonus/share", bonus.GrantShare)
	user.POST("/dreams/:id/share", bonus.ShareDream)
	user.DELETE("/dreams/:id/share", bonus.UnshareDream)

	artifacts := handler.NewArtifacts(r.services.Artifacts, r.contextManager, r.logger)
	user.GET("/artifacts/weekly", artifacts.Weekly)

	return e
}

func (r *Router) registerAccountRoutes(g *echo.Group) {
	h := handler.NewAccount(r.services.Accounts, r.contextManager, r.logger)
	g.POST("/accounts", h.Bootstrap)
	g.GET("/accounts/me", h.Get)
	g.PUT("/accounts/me/profile", h.CompleteSignup)
	g.DELETE("/accounts/me", h.Delete)
}

func (r *Router) registerDreamRoutes(g *echo.Group) {
	h := handler.NewDream(r.services.Dreams, r.contextManager, r.logger)

	generate := []echo.MiddlewareFunc{}
	if r.rateLimit != nil {
		generate = append(generate, r.rateLimit.Handle)
	}

	g.POST("/dreams", h.CreateFree, generate...)
	g.GET("/dreams", h.List)
	g.GET("/dreams/:id", h.Get)
	g.POST("/premium-dreams", h.CreatePremium, generate...)
	g.GET("/premium-dreams", h.ListPremium)
	g.GET("/premium-dreams/:id", h.GetPremium)
}
