package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const sessionKeyPrefix = "jpd:session:"

// Client is the subset of *redis.Client the store needs.
type Client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("connected to redis")
	return rdb, nil
}

// RedisStore keeps each room's full session as one JSON value. It implements
// game.Store.
type RedisStore struct {
	client Client
	ttl    time.Duration
}

// NewRedisStore creates a store whose entries expire ttl after their last
// save. A zero ttl keeps entries forever.
func NewRedisStore(client Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(roomID string) string {
	return sessionKeyPrefix + roomID
}

func (s *RedisStore) Save(ctx context.Context, roomID string, state game.SavedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", roomID, err)
	}
	if err := s.client.Set(ctx, sessionKey(roomID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", roomID, err)
	}
	return nil
}

// Load returns game.ErrNotFound when the room has no stored session.
func (s *RedisStore) Load(ctx context.Context, roomID string) (*game.SavedState, error) {
	data, err := s.client.Get(ctx, sessionKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", roomID, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", roomID, err)
	}

	var state game.SavedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", roomID, err)
	}
	return &state, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	if err := s.client.Del(ctx, sessionKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", roomID, err)
	}
	return nil
}
