package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beanline/storefront/config"
	"github.com/beanline/storefront/internal/app/controller"
	"github.com/beanline/storefront/internal/app/service"
	"github.com/beanline/storefront/internal/cart"
	"github.com/beanline/storefront/internal/middleware"
	"github.com/beanline/storefront/internal/router"
	"github.com/beanline/storefront/internal/scheduler"
	"github.com/beanline/storefront/internal/session"
	"github.com/beanline/storefront/internal/websocket"
	"github.com/beanline/storefront/pkg/commerce"
	"github.com/beanline/storefront/pkg/logger"
	"github.com/beanline/storefront/pkg/money"
	"github.com/beanline/storefront/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	format := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		format = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      format,
		EnableColor: true,
	})

	logger.Info("Starting storefront server", map[string]interface{}{
		"environment":  cfg.Server.Environment,
		"port":         cfg.Server.Port,
		"commerce_url": cfg.Commerce.BaseURL,
		"log_level":    logLevel,
	})

	// Remote cart service
	commerceClient, err := commerce.NewClient(commerce.Config{
		BaseURL:        cfg.Commerce.BaseURL,
		Timeout:        cfg.Commerce.Timeout,
		SessionCookie:  cfg.Commerce.SessionCookie,
		CustomerCookie: cfg.Commerce.CustomerCookie,
	})
	if err != nil {
		logger.Fatal("Failed to create commerce client", err)
	}

	// Token revocation
	redisClient, err := redis.Connect(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", err, map[string]interface{}{
			"addr": cfg.Redis.Addr(),
		})
	}
	defer redisClient.Close()
	blacklist := redis.NewBlacklist(redisClient)

	// Per-session cart stores, pushed to websocket observers
	hub := websocket.NewHub()
	go hub.Run()

	formatter := money.NewFormatter(money.Config{
		Symbol:    cfg.Currency.Symbol,
		Precision: cfg.Currency.Precision,
		Thousand:  cfg.Currency.Thousand,
		Decimal:   cfg.Currency.Decimal,
	})
	registry := session.NewRegistry(cart.NewCommerceRemote(commerceClient), service.NewHubPublisher(hub, formatter))

	sweeper := scheduler.NewSessionSweeper(registry, cfg.Session.SweepSchedule, cfg.Session.IdleTTL)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start session sweeper", err)
	}

	// Initialize services
	cartService := service.NewCartService(registry)
	authService := service.NewAuthService(
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// Initialize controllers
	cartController := controller.NewCartController(cartService, formatter, hub, websocket.NewUpgrader(cfg.CORS.AllowedOrigins))
	authController := controller.NewAuthController(authService, cartService, formatter)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)
	sessionMiddleware := middleware.NewSessionMiddleware(
		cfg.Session.CookieName,
		cfg.Session.Secret,
		cfg.Session.MaxAge,
		cfg.Server.Environment == "production",
	)

	// Setup router
	r := router.NewRouter(authController, cartController, authMiddleware, sessionMiddleware, cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	sweeper.Stop()
	registry.CloseAll()
	hub.Stop()

	logger.Info("Server stopped successfully")
}
