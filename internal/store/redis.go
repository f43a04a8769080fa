package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"botcast/internal/game"
)

const redisKeyPrefix = "session:"

// Redis persists session records as JSON values with native expiry. Use this
// backend when sessions must survive process restarts.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, code string) (*game.Session, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+code).Result()
	if err == redis.Nil {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var s game.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Redis) Set(ctx context.Context, code string, session *game.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+code, data, ttl).Err()
}

func (r *Redis) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+code).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
