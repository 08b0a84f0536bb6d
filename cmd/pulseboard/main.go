package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulseboard/pulseboard/internal/app"
	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/permission"
	"github.com/pulseboard/pulseboard/internal/platform/cache"
	"github.com/pulseboard/pulseboard/internal/platform/db"
	"github.com/pulseboard/pulseboard/internal/profile"
	"github.com/pulseboard/pulseboard/internal/provision"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	directory := identity.NewPGDirectory(dbpool, cfg.BcryptCost)
	tokens := identity.NewTokenStore(redisClient, cfg.TokenTTL)
	authHandler := identity.NewHandler(logger, directory, tokens)
	authenticator := identity.Authenticator{Tokens: tokens, Logger: logger}

	permissionRepo := permission.NewRepository(dbpool)
	grantCache := permission.NewCache(redisClient, cfg.GrantCacheTTL)
	permissionService := permission.NewService(permissionRepo, grantCache, logger)
	permissionHandler := permission.NewHandler(logger, permissionService)
	guard := permission.Middleware{Service: permissionService, Logger: logger}

	profileRepo := provision.NewRepository(dbpool)
	provisionService := provision.NewService(directory, profileRepo, permissionRepo, permissionService, logger)
	provisionHandler := provision.NewHandler(logger, provisionService, guard)

	ownProfileRepo := profile.NewRepository(dbpool)
	profileService := profile.NewService(ownProfileRepo, directory)
	profileHandler := profile.NewHandler(logger, profileService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authenticator:     authenticator,
		AuthHandler:       authHandler,
		PermissionHandler: permissionHandler,
		ProvisionHandler:  provisionHandler,
		ProfileHandler:    profileHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
