package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "decision:instance:"

// RedisStore keeps instances as JSON values in Redis, one key per
// instance. No TTL: instances live until the platform deletes them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store from a redis:// URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("configstore: invalid redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreWithClient wraps an existing client (used in tests).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Create(ctx context.Context, inst *Instance) error {
	now := time.Now().UTC()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	return s.set(ctx, inst)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Instance, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("configstore: redis get %s: %w", id, err)
	}

	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("configstore: corrupt instance %s: %w", id, err)
	}
	return &inst, nil
}

func (s *RedisStore) Update(ctx context.Context, inst *Instance) error {
	existing, err := s.Get(ctx, inst.ID)
	if err != nil {
		return err
	}
	inst.CreatedAt = existing.CreatedAt
	inst.UpdatedAt = time.Now().UTC()
	return s.set(ctx, inst)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("configstore: redis del %s: %w", id, err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Instance, error) {
	var out []*Instance
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // deleted between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("configstore: redis get %s: %w", iter.Val(), err)
		}
		var inst Instance
		if err := json.Unmarshal(data, &inst); err != nil {
			return nil, fmt.Errorf("configstore: corrupt instance at %s: %w", iter.Val(), err)
		}
		out = append(out, &inst)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("configstore: redis scan: %w", err)
	}
	return out, nil
}

func (s *RedisStore) set(ctx context.Context, inst *Instance) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("configstore: marshal instance %s: %w", inst.ID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+inst.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("configstore: redis set %s: %w", inst.ID, err)
	}
	return nil
}
