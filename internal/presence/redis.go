package presence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	presenceKey     = "presence"
	customStatusKey = "customStatus"
)

// RedisStore keeps presence in two Redis hashes keyed by user unique id.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) SetPresence(ctx context.Context, userID string, status Status) error {
	return s.client.HSet(ctx, presenceKey, userID, int(status)).Err()
}

func (s *RedisStore) ClearPresence(ctx context.Context, userID string) error {
	return s.client.HDel(ctx, presenceKey, userID).Err()
}

func (s *RedisStore) Presences(ctx context.Context, userIDs []string) (map[string]Status, error) {
	out := make(map[string]Status, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	vals, err := s.client.HMGet(ctx, presenceKey, userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("read presences: %w", err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			continue
		}
		out[userIDs[i]] = Status(n)
	}
	return out, nil
}

func (s *RedisStore) SetCustomStatus(ctx context.Context, userID, text string) error {
	if text == "" {
		return s.client.HDel(ctx, customStatusKey, userID).Err()
	}
	return s.client.HSet(ctx, customStatusKey, userID, text).Err()
}

func (s *RedisStore) CustomStatuses(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	vals, err := s.client.HMGet(ctx, customStatusKey, userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("read custom statuses: %w", err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[userIDs[i]] = str
		}
	}
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
