// internal/db/redis.go
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrKeyNotFound is returned when a session or refresh key is absent or expired.
var ErrKeyNotFound = errors.New("redis: key not found")

type RedisDB struct {
	Client *redis.Client
	logger logrus.FieldLogger
}

func NewRedisDB(redisURL string, logger logrus.FieldLogger) (*RedisDB, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to Redis")
	return &RedisDB{Client: client, logger: logger}, nil
}

// NewRedisDBFromClient wraps an existing client.
func NewRedisDBFromClient(client *redis.Client, logger logrus.FieldLogger) *RedisDB {
	return &RedisDB{Client: client, logger: logger}
}

func (r *RedisDB) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisDB) Close() {
	if r.Client != nil {
		r.Client.Close()
		r.logger.Info("Redis connection closed")
	}
}

// Session management
func (r *RedisDB) SetSession(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, "session:"+key, data, expiration).Err()
}

func (r *RedisDB) GetSession(ctx context.Context, key string, dest interface{}) error {
	data, err := r.Client.Get(ctx, "session:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrKeyNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisDB) DeleteSession(ctx context.Context, key string) error {
	return r.Client.Del(ctx, "session:"+key).Err()
}

// Refresh tokens map to the session they renew.
func (r *RedisDB) SetRefreshToken(ctx context.Context, token, sessionID string, expiration time.Duration) error {
	return r.Client.Set(ctx, "refresh:"+token, sessionID, expiration).Err()
}

func (r *RedisDB) GetRefreshToken(ctx context.Context, token string) (string, error) {
	sessionID, err := r.Client.Get(ctx, "refresh:"+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return sessionID, err
}

func (r *RedisDB) DeleteRefreshToken(ctx context.Context, token string) error {
	return r.Client.Del(ctx, "refresh:"+token).Err()
}
