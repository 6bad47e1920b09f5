package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
)

// RedisSessionCache keeps recently created sessions by token and the
// idempotency key to token mapping.
type RedisSessionCache struct {
	client     *redis.Client
	defaultTTL time.Duration
	now        func() time.Time
}

func NewRedisSessionCache(client *redis.Client, defaultTTL time.Duration) *RedisSessionCache {
	return &RedisSessionCache{client: client, defaultTTL: defaultTTL, now: time.Now}
}

func (c *RedisSessionCache) tokenKey(token string) string {
	return "checkout:token:" + token
}

func (c *RedisSessionCache) idemKey(userID, key string) string {
	return fmt.Sprintf("idem:checkout:%s:%s", userID, key)
}

func (c *RedisSessionCache) GetByToken(ctx context.Context, token string) (*models.CheckoutSession, error) {
	data, err := c.client.Get(ctx, c.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s models.CheckoutSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode cached session: %w", err)
	}
	return &s, nil
}

// Put caches the session until it expires. Already expired sessions are not cached.
func (c *RedisSessionCache) Put(ctx context.Context, session *models.CheckoutSession) error {
	ttl := c.defaultTTL
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(c.now())
	}
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.tokenKey(session.Token), data, ttl).Err()
}

func (c *RedisSessionCache) GetIdempotency(ctx context.Context, userID, key string) (string, error) {
	val, err := c.client.Get(ctx, c.idemKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *RedisSessionCache) SetIdempotency(ctx context.Context, userID, key, token string, ttl time.Duration) error {
	return c.client.Set(ctx, c.idemKey(userID, key), token, ttl).Err()
}
