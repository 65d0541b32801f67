package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/commerce-backend/config"
	"github.com/storefront/commerce-backend/pkg/logger"
)

// Store backs token revocation and request throttling. A Store with a nil
// client is a valid disabled store: nothing is revoked and every request
// is allowed.
type Store struct {
	client *redis.Client
}

// NewStore connects to Redis when enabled. A disabled config returns a
// disabled store and no error.
func NewStore(cfg *config.RedisConfig) (*Store, error) {
	if !cfg.Enabled {
		logger.Warn("Redis disabled, token revocation and OTP throttling are off")
		return &Store{}, nil
	}

	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully")
	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	logger.Info("Closing Redis connection")
	return s.client.Close()
}

func revokedKey(jti string) string {
	return fmt.Sprintf("revoked:jti:%s", jti)
}

func throttleKey(key string) string {
	return fmt.Sprintf("throttle:%s", key)
}

// Revoke marks a token id as revoked for ttl, normally the token's
// remaining lifetime.
func (s *Store) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if !s.Enabled() || jti == "" || ttl <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, revokedKey(jti), "revoked", ttl).Err(); err != nil {
		logger.Error("Failed to revoke token", err, map[string]interface{}{
			"jti": jti,
		})
		return err
	}

	logger.Debug("Token revoked", map[string]interface{}{
		"jti": jti,
		"ttl": ttl.String(),
	})
	return nil
}

// RevokeOnce revokes jti unless it already is, in one SETNX. It reports
// whether this call did the revoking. A disabled store always reports true.
func (s *Store) RevokeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if !s.Enabled() || jti == "" || ttl <= 0 {
		return true, nil
	}

	set, err := s.client.SetNX(ctx, revokedKey(jti), "revoked", ttl).Result()
	if err != nil {
		logger.Error("Failed to revoke token", err, map[string]interface{}{
			"jti": jti,
		})
		return false, err
	}
	if !set {
		logger.Warn("Token already revoked", map[string]interface{}{
			"jti": jti,
		})
	}
	return set, nil
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !s.Enabled() || jti == "" {
		return false, nil
	}

	val, err := s.client.Get(ctx, revokedKey(jti)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token revocation", err, map[string]interface{}{
			"jti": jti,
		})
		return false, err
	}
	return val == "revoked", nil
}

// Allow counts one request against key and reports whether it is within
// limit for the current window. The window starts at the first request.
func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !s.Enabled() || limit <= 0 {
		return true, nil
	}

	k := throttleKey(key)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Failed to update request throttle", err, map[string]interface{}{
			"key": key,
		})
		return false, err
	}

	count := incr.Val()
	if count > int64(limit) {
		logger.Warn("Request throttled", map[string]interface{}{
			"key":   key,
			"count": count,
			"limit": limit,
		})
		return false, nil
	}
	return true, nil
}
