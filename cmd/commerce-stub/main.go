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

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/beanline/storefront/config"
	"github.com/beanline/storefront/internal/db"
	"github.com/beanline/storefront/internal/middleware"
	"github.com/beanline/storefront/internal/stub/controller"
	"github.com/beanline/storefront/internal/stub/repository"
	"github.com/beanline/storefront/internal/stub/service"
	"github.com/beanline/storefront/pkg/logger"
	"github.com/beanline/storefront/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:       "debug",
		Format:      "console",
		EnableColor: true,
	})

	cmd := &cli.Command{
		Name:  "commerce-stub",
		Usage: "Development stand-in for the remote cart service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Serve the cart API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Value: cfg.Stub.Port, Usage: "listen port"},
					&cli.BoolFlag{Name: "seed", Value: true, Usage: "seed the demo catalog on start"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, cfg, c.String("port"), c.Bool("seed"))
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migration",
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := openDB(cfg); err != nil {
						return err
					}
					defer db.Close()
					return db.Migrate()
				},
			},
			{
				Name:  "seed",
				Usage: "Load the demo catalog and coupons",
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := openDB(cfg); err != nil {
						return err
					}
					defer db.Close()
					if err := db.Migrate(); err != nil {
						return err
					}
					return db.Seed()
				},
			},
			{
				Name:  "issue-token",
				Usage: "Print a storefront token pair for a customer",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "customer-id", Required: true},
					&cli.StringFlag{Name: "email", Value: "dev@beanline.test"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					pair, err := util.GenerateTokenPair(
						uint(c.Uint("customer-id")),
						c.String("email"),
						cfg.JWT.Secret,
						cfg.JWT.AccessTokenExpiry,
						cfg.JWT.RefreshTokenExpiry,
					)
					if err != nil {
						return err
					}
					fmt.Printf("access_token=%s\nrefresh_token=%s\n", pair.AccessToken, pair.RefreshToken)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("Command failed", err)
	}
}

func openDB(cfg *config.Config) error {
	return db.Initialize(&cfg.Database)
}

func serve(ctx context.Context, cfg *config.Config, port string, seed bool) error {
	if err := openDB(cfg); err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	if seed {
		if err := db.Seed(); err != nil {
			logger.Warn("Failed to seed database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	commerceService := service.NewCommerceService(
		repository.NewProductRepository(db.GetDB()),
		repository.NewCartLineRepository(db.GetDB()),
		repository.NewCouponRepository(db.GetDB()),
	)
	commerceController := controller.NewCommerceController(
		commerceService,
		cfg.Commerce.SessionCookie,
		cfg.Commerce.CustomerCookie,
	)

	gin.SetMode(cfg.Server.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.LoggingMiddleware())
	commerceController.RegisterRoutes(engine.Group("/api"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Commerce stub listening", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down commerce stub...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
