package adapters

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/chatbridge/bridge/config"
	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps session histories in redis under "session:<id>"
// keys. Every write is a SETEX: save and TTL refresh are one atomic
// operation, and reads never touch the expiry.
type RedisSessionStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxHistory int
}

func NewRedisSessionStore(cfg config.CacheConfig) *RedisSessionStore {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &RedisSessionStore{
		client:     redis.NewClient(opts),
		ttl:        cfg.SessionTTL,
		maxHistory: cfg.MaxHistory,
	}
}

// Ping verifies connectivity at startup.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisSessionStore) Close() error { return s.client.Close() }

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) ([]ports.Turn, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	var history []ports.Turn
	if err := json.Unmarshal([]byte(data), &history); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return history, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, history []ports.Turn) error {
	history = trimHistory(history, s.maxHistory)
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) AppendAndTrim(ctx context.Context, sessionID string, turns ...ports.Turn) error {
	history, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Save(ctx, sessionID, append(history, turns...))
}

func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string { return "session:" + sessionID }

// trimHistory keeps the most recent max turns, oldest dropped first.
func trimHistory(history []ports.Turn, max int) []ports.Turn {
	if max > 0 && len(history) > max {
		return history[len(history)-max:]
	}
	return history
}

// Ensure RedisSessionStore implements the SessionStore port.
var _ ports.SessionStore = (*RedisSessionStore)(nil)
