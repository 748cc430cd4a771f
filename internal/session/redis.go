package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each session as a JSON string under Prefix+userID.
// TTL, when set, lets redis drop records the sweeper never saw.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisBackend wraps a connected client.
func NewRedisBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) key(userID string) string { return b.prefix + userID }

func (b *RedisBackend) Save(ctx context.Context, sess *Session) error {
	data, err := Marshal(sess)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key(sess.UserID), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set %s: %w", sess.UserID, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, userID string) error {
	if err := b.client.Del(ctx, b.key(userID)).Err(); err != nil {
		return fmt.Errorf("session: redis del %s: %w", userID, err)
	}
	return nil
}

func (b *RedisBackend) LoadAll(ctx context.Context) ([]Session, error) {
	var out []Session
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := b.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			logSkipped(ctx, b.Name(), key, err)
			continue
		}
		sess, err := Unmarshal(data)
		if err != nil {
			logSkipped(ctx, b.Name(), key, err)
			continue
		}
		out = append(out, sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("session: redis scan: %w", err)
	}
	return out, nil
}
