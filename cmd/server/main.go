package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"gallery/internal/auth"
	"gallery/internal/cache"
	"gallery/internal/config"
	"gallery/internal/db"
	"gallery/internal/handler"
	"gallery/internal/lifecycle"
	"gallery/internal/logger"
	"gallery/internal/queue"
	"gallery/internal/repository"
	"gallery/internal/router"
	"gallery/internal/service"
)

// @title Gallery Users API
// @version 1.0
// @description Marketplace users: profiles, artists, wallet nonces and local authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewSlog(logger.SlogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	gormDB, err := db.Open(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "error", err)
	}

	var publisher queue.StatsPublisher = queue.NewLogPublisher(log)
	if cfg.RabbitMQ.URL != "" {
		client, err := queue.NewClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, log)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = client
	}

	if err := lifecycle.New(lifecycle.NonceMode(cfg.SharedNonce), publisher, log).Register(gormDB); err != nil {
		return err
	}

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Services
	userService := service.NewUserService(userRepo, cacheClient)
	authService := service.NewAuthService(userRepo, userService, jwtService, tokenStore)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Dependencies{
		Config:      cfg,
		Logger:      log,
		JWT:         jwtService,
		Tokens:      tokenStore,
		UserHandler: handler.NewUserHandler(userService, log),
		AuthHandler: handler.NewAuthHandler(authService, log),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("http server listening", "addr", addr, "swagger", "/swagger/index.html")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
