package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beanline/storefront/config"
	"github.com/beanline/storefront/pkg/logger"
)

const blacklistPrefix = "storefront:revoked:"

// Connect opens a client and pings it.
func Connect(cfg *config.RedisConfig) (*redis.Client, error) {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"addr": cfg.Addr(),
		"db":   cfg.DB,
	})

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"addr": cfg.Addr(),
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return client, nil
}

// Blacklist records revoked token ids until the token would have expired
// anyway.
type Blacklist struct {
	client redis.Cmdable
}

func NewBlacklist(client redis.Cmdable) *Blacklist {
	return &Blacklist{client: client}
}

// Revoke blacklists tokenID for ttl. A non-positive ttl means the token is
// already expired and nothing is stored.
func (b *Blacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistPrefix+tokenID, "revoked", ttl).Err(); err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	logger.Debug("Token blacklisted", map[string]interface{}{
		"ttl": ttl.String(),
	})
	return nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := b.client.Get(ctx, blacklistPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}
