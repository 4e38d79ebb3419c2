package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beanline/storefront/config"
	"github.com/beanline/storefront/internal/app/controller"
	"github.com/beanline/storefront/internal/middleware"
)

type Router struct {
	authController    *controller.AuthController
	cartController    *controller.CartController
	authMiddleware    *middleware.AuthMiddleware
	sessionMiddleware *middleware.SessionMiddleware
	config            *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	cartController *controller.CartController,
	authMiddleware *middleware.AuthMiddleware,
	sessionMiddleware *middleware.SessionMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:    authController,
		cartController:    cartController,
		authMiddleware:    authMiddleware,
		sessionMiddleware: sessionMiddleware,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Beanline storefront is running",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(r.sessionMiddleware.Handle())
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.POST("/refresh", r.authController.RefreshToken)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.OptionalAuthenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("/refresh", r.cartController.RefreshCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.DELETE("/items/:product_id", r.cartController.RemoveFromCart)
			cart.POST("/coupon", r.cartController.ApplyCoupon)
			cart.DELETE("/coupon", r.cartController.RemoveCoupon)
			cart.GET("/ws", r.cartController.Stream)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed && origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
