package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TokenStore persists change-stream resume tokens under a fixed key.
type TokenStore struct {
	client *redis.Client
	key    string
}

func NewTokenStore(client *redis.Client, key string) *TokenStore {
	return &TokenStore{client: client, key: key}
}

// Load returns the saved token, or nil when none was saved.
func (s *TokenStore) Load(ctx context.Context) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load resume token: %w", err)
	}
	return b, nil
}

func (s *TokenStore) Save(ctx context.Context, token []byte) error {
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("save resume token: %w", err)
	}
	return nil
}
