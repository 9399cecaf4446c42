package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/calyxcontainers/scar-service/internal/config"
	"github.com/calyxcontainers/scar-service/internal/database"
	"github.com/calyxcontainers/scar-service/internal/handler"
	"github.com/calyxcontainers/scar-service/internal/queue"
	"github.com/calyxcontainers/scar-service/internal/repository"
	"github.com/calyxcontainers/scar-service/internal/router"
	"github.com/calyxcontainers/scar-service/internal/service"
	"github.com/calyxcontainers/scar-service/internal/workflow"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db, logger); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}
	if cfg.Seed {
		if err := database.Seed(ctx, db, cfg.BcryptCost, logger); err != nil {
			logger.Fatal("demo data seed failed", zap.Error(err))
		}
	}

	// Redis backs rate limiting and the read cache. Both degrade to
	// pass-through when it is unreachable.
	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	userRepo := repository.NewUserRepo(db)
	vendorRepo := repository.NewVendorRepo(db)
	scarRepo := repository.NewScarRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	engine := workflow.New(scarRepo)
	// A nil publisher drops events, so disabling events needs no
	// branching at the call sites.
	var publisher *service.Publisher
	if cfg.EventsEnabled {
		publisher = service.NewPublisher(logger)
		go queue.StartLifecycleConsumer(logger)
	}

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), rlCfg, rdb, cfg.JWTSecret)
	router.RegisterVendors(e, handler.NewVendorHandler(vendorRepo), cfg.JWTSecret)
	router.RegisterScars(e, handler.NewScarHandler(engine, publisher, cacheCfg, rdb), cacheCfg, rdb, cfg.JWTSecret)
	router.RegisterUserAdmin(e, handler.NewUserAdminHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
