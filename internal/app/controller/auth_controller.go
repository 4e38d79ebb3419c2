package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beanline/storefront/internal/app/service"
	apperrors "github.com/beanline/storefront/internal/errors"
	"github.com/beanline/storefront/internal/middleware"
	"github.com/beanline/storefront/pkg/money"
)

type AuthController struct {
	authService service.AuthService
	cartService service.CartService
	formatter   *money.Formatter
}

func NewAuthController(authService service.AuthService, cartService service.CartService, formatter *money.Formatter) *AuthController {
	return &AuthController{
		authService: authService,
		cartService: cartService,
		formatter:   formatter,
	}
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Logout revokes the caller's tokens and drops the customer from the
// session's cart. The cart itself stays with the customer on the service.
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LogoutRequest
	// the body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.RespondWithValidationError(c, apperrors.BindingFields(err))
			return
		}
	}

	claims, _ := middleware.GetTokenClaims(c)
	if err := ctrl.authService.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		log.Error("Failed to revoke tokens during logout", err, nil)
		apperrors.InternalError(c, "We couldn't sign you out. Please try again")
		return
	}

	sid, ok := middleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
		return
	}

	snap := ctrl.cartService.Logout(c.Request.Context(), sid)
	if claims != nil {
		log.Info("Customer logged out", map[string]interface{}{
			"customer_id": claims.CustomerID,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
		"cart":    service.NewCartView(snap, ctrl.formatter),
	})
}

// RefreshToken rotates a refresh token
// POST /api/v1/auth/refresh
func (ctrl *AuthController) RefreshToken(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, apperrors.BindingFields(err))
		return
	}

	tokens, err := ctrl.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenRevoked):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenRevoked, "Please sign in again")
		case errors.Is(err, service.ErrExpiredToken):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenExpired, "Your session has expired. Please sign in again")
		case errors.Is(err, service.ErrInvalidToken):
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid refresh token")
		default:
			log.Error("Failed to refresh token", err, nil)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"tokens":  tokens,
	})
}
