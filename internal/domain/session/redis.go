package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

const keyPrefix = "phc:session:facility:"

// RedisStore persists facility contexts as JSON values that expire with the
// session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*FacilityContext, error) {
	val, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w: %v", apperr.ErrStoreUnavailable, err)
	}
	var fc FacilityContext
	if err := json.Unmarshal(val, &fc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &fc, nil
}

func (s *RedisStore) Set(ctx context.Context, fc *FacilityContext) error {
	val, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+fc.SessionID, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete session: %w: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// Ping backs the /health/db check.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
