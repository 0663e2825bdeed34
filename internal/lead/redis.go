package lead

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list holding evaluation requests.
const DefaultRedisKey = "solar:evaluations"

// RedisStore keeps evaluation requests as JSON documents in a Redis list.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore wraps client. An empty key selects DefaultRedisKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Save appends req to the list.
func (s *RedisStore) Save(ctx context.Context, req EvaluationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation request: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to store evaluation request: %w", err)
	}
	return nil
}

// List returns the stored requests in submission order.
func (s *RedisStore) List(ctx context.Context) ([]EvaluationRequest, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation requests: %w", err)
	}

	requests := make([]EvaluationRequest, 0, len(values))
	for _, value := range values {
		var req EvaluationRequest
		if err := json.Unmarshal([]byte(value), &req); err != nil {
			return nil, fmt.Errorf("failed to decode evaluation request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}
