package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares sessions across a fleet of stations. Each station has its
// own key so operators sign in per door.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	StationID   string
	TTL         time.Duration // 0 keeps the session until sign-out
}

func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return NewRedisStore(client, cfg.StationID, cfg.TTL), nil
}

func NewRedisStore(client *redis.Client, stationID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    "ticketgate:session:" + stationID,
		ttl:    ttl,
	}
}

func (s *RedisStore) Brand(ctx context.Context) (string, error) {
	brand, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return brand, nil
}

func (s *RedisStore) SignIn(ctx context.Context, brand string) error {
	brand, err := normalizeBrand(brand)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, brand, s.ttl).Err()
}

func (s *RedisStore) SignOut(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
