package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"boss_alert_bot/internal/domain/tracker"

	"github.com/redis/go-redis/v9"
)

// NewClient builds a client for addr; it does not dial until first use.
func NewClient(addr, username, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       0,
	})
}

// Store keeps tracker messages in one redis hash, one field per guild id.
type Store struct {
	rdb *redis.Client
	key string
}

var _ tracker.Store = (*Store)(nil)

func NewStore(rdb *redis.Client, key string) *Store {
	return &Store{rdb: rdb, key: key}
}

func (s *Store) Get(ctx context.Context, guildID string) (*tracker.Message, error) {
	raw, err := s.rdb.HGet(ctx, s.key, guildID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget %s %s: %w", s.key, guildID, err)
	}

	var msg tracker.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode tracker message for guild %s: %w", guildID, err)
	}
	if msg.MessageID == "" {
		return nil, nil
	}
	msg.GuildID = guildID
	return &msg, nil
}

func (s *Store) Set(ctx context.Context, msg tracker.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode tracker message: %w", err)
	}
	if err := s.rdb.HSet(ctx, s.key, msg.GuildID, raw).Err(); err != nil {
		return fmt.Errorf("redis hset %s %s: %w", s.key, msg.GuildID, err)
	}
	return nil
}

// Ping checks connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
