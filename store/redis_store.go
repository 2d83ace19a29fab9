package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis implements RemoteStore over a github.com/redis/go-redis/v9 client,
// mapping the logical set/hash operations directly onto Redis's native
// SADD/SREM/SMEMBERS/DEL and HSET/HDEL/HGETALL commands.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing *redis.Client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) SetAdd(ctx context.Context, key, member string) error {
	if err := r.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis SADD %s: %w", key, err)
	}
	return nil
}

func (r *Redis) SetRemove(ctx context.Context, key, member string) error {
	if err := r.client.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis SREM %s: %w", key, err)
	}
	return nil
}

func (r *Redis) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis SMEMBERS %s: %w", key, err)
	}
	return members, nil
}

func (r *Redis) SetDelete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return nil
}

func (r *Redis) HashPut(ctx context.Context, key, field, value string) error {
	if err := r.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", key, err)
	}
	return nil
}

func (r *Redis) HashRemove(ctx context.Context, key, field string) error {
	if err := r.client.HDel(ctx, key, field).Err(); err != nil {
		return fmt.Errorf("redis HDEL %s: %w", key, err)
	}
	return nil
}

func (r *Redis) HashEntries(ctx context.Context, key string) (map[string]string, error) {
	entries, err := r.client.HGetAll(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis HGETALL %s: %w", key, err)
	}
	return entries, nil
}
