package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/health"

	grpchealth "github.com/dtroode/dreamluck-server/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/dreamluck-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/dreamluck-server/internal/api/grpc/server"
	httpctx "github.com/dtroode/dreamluck-server/internal/api/http/context"
	"github.com/dtroode/dreamluck-server/internal/api/http/middleware"
	httprouter "github.com/dtroode/dreamluck-server/internal/api/http/router"
	httpserver "github.com/dtroode/dreamluck-server/internal/api/http/server"
	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/config"
	"github.com/dtroode/dreamluck-server/internal/generation/openai"
	"github.com/dtroode/dreamluck-server/internal/jobs"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/metrics"
	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/queue/rabbitmq"
	"github.com/dtroode/dreamluck-server/internal/quota"
	"github.com/dtroode/dreamluck-server/internal/repository/postgres"
	"github.com/dtroode/dreamluck-server/internal/server"
	"github.com/dtroode/dreamluck-server/internal/service"
	storage "github.com/dtroode/dreamluck-server/internal/storage/minio"
	"github.com/dtroode/dreamluck-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	clk, err := clock.NewCivil(cfg.Quota.TimeZone)
	if err != nil {
		logger.Fatal("failed to initialize clock", "error", err)
	}

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	shares, err := storage.NewStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to initialize object storage", "error", err)
	}

	publisher := newPublisher(cfg.RabbitMQ, logger)
	defer publisher.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiting fails open", "addr", cfg.Redis.Addr, "error", err.Error())
	}

	m := metrics.New()

	accountRepo := postgres.NewAccountRepository(db)
	dreamRepo := postgres.NewDreamRepository(db)
	premiumDreamRepo := postgres.NewPremiumDreamRepository(db)

	generator := openai.NewClient(cfg.OpenAI, clk, logger, openai.WithObserver(m))
	ledger := service.NewLedger(accountRepo, cfg.Quota.CASAttempts, logger)
	artifacts := service.NewArtifacts(ledger, clk, quota.NewLockedRand(), logger)
	accounts := service.NewAccount(accountRepo, ledger, clk, logger)
	bonus := service.NewBonus(ledger, dreamRepo, shares, publisher, clk, m, logger)
	dreams := service.NewDream(ledger, dreamRepo, premiumDreamRepo, generator, artifacts, publisher, clk, m, logger)

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)
	ctxMgr := httpctx.NewManager()
	rateLimit := middleware.NewRateLimit(cfg.RateLimit, rdb, ctxMgr, logger)

	httpRouter := httprouter.New(httprouter.Services{
		Accounts:  accounts,
		Dreams:    dreams,
		Bonus:     bonus,
		Artifacts: artifacts,
		Database:  db,
	}, tokenManager, ctxMgr, rateLimit, m, m.Handler(), cfg.AdminToken, logger)
	httpSrv := httpserver.NewHTTPServer(httpRouter.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	healthSrv := health.NewServer()
	grpcSrv := grpcserver.NewGRPCServer(grpcrouter.New(healthSrv, logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))
	watcher := grpchealth.NewWatcher(db, healthSrv, cfg.Health.Interval, logger)

	reconciler := jobs.NewReconciler(dreamRepo, clk, cfg.Reconcile.PendingAfter, m, logger)
	if err := reconciler.Start(cfg.Reconcile.Schedule); err != nil {
		logger.Fatal("failed to start reconciler", "error", err)
	}

	sl := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)

	var wg sync.WaitGroup
	for _, s := range []model.Server{httpSrv, grpcSrv} {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range []model.Server{httpSrv, grpcSrv} {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}
	reconciler.Stop(shutdownCtx)

	wg.Wait()
	logger.Info("shutdown complete")
}

// closablePublisher is an EventPublisher that is closed on shutdown.
type closablePublisher interface {
	model.EventPublisher
	Close() error
}

// newPublisher connects to RabbitMQ, or returns a no-op publisher when no URL
// is configured or the broker is unreachable. Events are best-effort.
func newPublisher(cfg config.RabbitMQ, logger *logger.Logger) closablePublisher {
	if cfg.URL == "" {
		logger.Info("event publishing disabled")
		return rabbitmq.Noop{}
	}
	p, err := rabbitmq.NewPublisher(cfg, logger)
	if err != nil {
		logger.Warn("failed to connect to rabbitmq, events disabled", "error", err.Error())
		return rabbitmq.Noop{}
	}
	return p
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
