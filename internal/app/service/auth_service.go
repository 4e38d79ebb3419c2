package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beanline/storefront/pkg/logger"
	"github.com/beanline/storefront/pkg/util"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenBlacklist stores revoked token ids. pkg/redis.Blacklist implements it.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService handles the token side of identity. Issuing the first token
// pair belongs to the account system; this service only rotates and
// revokes.
type AuthService interface {
	Logout(ctx context.Context, access *util.Claims, refreshToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*util.TokenPair, error)
}

type authService struct {
	blacklist     TokenBlacklist
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(blacklist TokenBlacklist, jwtSecret string, accessExpiry, refreshExpiry time.Duration) AuthService {
	return &authService{
		blacklist:     blacklist,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Logout revokes the access token and, when supplied and valid, the
// refresh token.
func (s *authService) Logout(ctx context.Context, access *util.Claims, refreshToken string) error {
	if access != nil {
		if err := s.blacklist.Revoke(ctx, access.ID, access.RemainingLifetime()); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}

	if refreshToken == "" {
		return nil
	}
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		// an unusable refresh token needs no revoking
		logger.Debug("Skipping revocation of unusable refresh token", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingLifetime()); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RefreshToken rotates a refresh token: the old one is revoked and a new
// pair is issued for the same customer.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, util.ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.TokenType != util.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		logger.Warn("Revoked refresh token presented", map[string]interface{}{
			"customer_id": claims.CustomerID,
		})
		return nil, ErrTokenRevoked
	}

	tokens, err := util.GenerateTokenPair(claims.CustomerID, claims.Email, s.jwtSecret, s.accessExpiry, s.refreshExpiry)
	if err != nil {
		return nil, err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingLifetime()); err != nil {
		return nil, fmt.Errorf("revoke rotated refresh token: %w", err)
	}

	logger.Info("Token refreshed", map[string]interface{}{
		"customer_id": claims.CustomerID,
	})
	return tokens, nil
}
