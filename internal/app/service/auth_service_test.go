package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beanline/storefront/pkg/util"
)

const testJWTSecret = "service-test-secret"

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func (m *memoryBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.revoked == nil {
		m.revoked = make(map[string]time.Duration)
	}
	m.revoked[tokenID] = ttl
	return nil
}

func (m *memoryBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, m.err
}

func issue(t *testing.T) (*util.TokenPair, *util.Claims, *util.Claims) {
	tokens, err := util.GenerateTokenPair(7, "c@example.com", testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	access, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
	require.NoError(t, err)
	refresh, err := util.ValidateToken(tokens.RefreshToken, testJWTSecret)
	require.NoError(t, err)
	return tokens, access, refresh
}

func TestAuthService_Logout(t *testing.T) {
	blacklist := &memoryBlacklist{}
	svc := NewAuthService(blacklist, testJWTSecret, 15*time.Minute, time.Hour)
	tokens, access, refresh := issue(t)

	require.NoError(t, svc.Logout(context.Background(), access, tokens.RefreshToken))

	assert.Contains(t, blacklist.revoked, access.ID)
	assert.Contains(t, blacklist.revoked, refresh.ID)
	assert.Greater(t, blacklist.revoked[access.ID], time.Duration(0))
}

func TestAuthService_Logout_GarbageRefreshTokenIgnored(t *testing.T) {
	blacklist := &memoryBlacklist{}
	svc := NewAuthService(blacklist, testJWTSecret, 15*time.Minute, time.Hour)
	_, access, _ := issue(t)

	require.NoError(t, svc.Logout(context.Background(), access, "garbage"))
	assert.Len(t, blacklist.revoked, 1)
}

func TestAuthService_Logout_BlacklistFailure(t *testing.T) {
	svc := NewAuthService(&memoryBlacklist{err: errors.New("redis down")}, testJWTSecret, 15*time.Minute, time.Hour)
	_, access, _ := issue(t)

	assert.Error(t, svc.Logout(context.Background(), access, ""))
}

func TestAuthService_RefreshToken_Rotates(t *testing.T) {
	blacklist := &memoryBlacklist{}
	svc := NewAuthService(blacklist, testJWTSecret, 15*time.Minute, time.Hour)
	tokens, _, refresh := issue(t)

	next, err := svc.RefreshToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := util.ValidateToken(next.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.CustomerID)
	assert.Contains(t, blacklist.revoked, refresh.ID)

	_, err = svc.RefreshToken(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_RefreshToken_Rejects(t *testing.T) {
	svc := NewAuthService(&memoryBlacklist{}, testJWTSecret, 15*time.Minute, time.Hour)
	tokens, _, _ := issue(t)
	expired, err := util.GenerateTokenPair(7, "c@example.com", testJWTSecret, time.Minute, -time.Minute)
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "an access token cannot be used to refresh")

	_, err = svc.RefreshToken(context.Background(), expired.RefreshToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = svc.RefreshToken(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
