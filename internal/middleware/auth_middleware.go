package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/beanline/storefront/internal/errors"
	"github.com/beanline/storefront/pkg/util"
)

// Context keys for customer information
const (
	CustomerIDKey    = "customer_id"
	CustomerEmailKey = "customer_email"
	TokenClaimsKey   = "token_claims"
)

// TokenBlacklist reports whether a token id was revoked at logout.
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthMiddleware struct {
	jwtSecret string
	blacklist TokenBlacklist
}

// NewAuthMiddleware builds the middleware. blacklist may be nil, in which
// case revocation is not checked.
func NewAuthMiddleware(jwtSecret string, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		blacklist: blacklist,
	}
}

// Authenticate requires a valid, unrevoked bearer token
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c)
		if !ok {
			log.Warn("Missing or malformed authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "Please sign in")
			c.Abort()
			return
		}

		claims, err := m.verify(c, token)
		if err != nil {
			log.Warn("Token rejected", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			switch {
			case stderrors.Is(err, util.ErrExpiredToken):
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Your session has expired")
			case stderrors.Is(err, errTokenRevoked):
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "You have been signed out")
			default:
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			}
			c.Abort()
			return
		}

		setCustomer(c, claims)
		log.Debug("Customer authenticated", map[string]interface{}{
			"customer_id": claims.CustomerID,
		})
		c.Next()
	}
}

// OptionalAuthenticate sets the customer when a usable token is present and
// otherwise carries on as a guest.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := m.verify(c, token)
		if err != nil {
			log.Debug("Token unusable - continuing as guest", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		setCustomer(c, claims)
		c.Next()
	}
}

var errTokenRevoked = stderrors.New("token revoked")

func (m *AuthMiddleware) verify(c *gin.Context, token string) (*util.Claims, error) {
	claims, err := util.ValidateToken(token, m.jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != util.TokenTypeAccess {
		return nil, util.ErrInvalidToken
	}
	if m.blacklist != nil {
		revoked, err := m.blacklist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			// fail closed: an unreachable blacklist must not resurrect tokens
			return nil, err
		}
		if revoked {
			return nil, errTokenRevoked
		}
	}
	return claims, nil
}

// bearerToken reads "Authorization: Bearer <token>", or ?token= for
// websocket upgrades that cannot set headers.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func setCustomer(c *gin.Context, claims *util.Claims) {
	c.Set(CustomerIDKey, claims.CustomerID)
	c.Set(CustomerEmailKey, claims.Email)
	c.Set(TokenClaimsKey, claims)
}

// GetCustomerID returns the authenticated customer, or 0 and false for a guest
func GetCustomerID(c *gin.Context) (uint, bool) {
	id, exists := c.Get(CustomerIDKey)
	if !exists {
		return 0, false
	}
	return id.(uint), true
}

func GetTokenClaims(c *gin.Context) (*util.Claims, bool) {
	claims, exists := c.Get(TokenClaimsKey)
	if !exists {
		return nil, false
	}
	return claims.(*util.Claims), true
}
