package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/greenmarket/storefront/internal/redisx"
)

// SessionStore keeps server-side sessions in Redis: an opaque uuid token maps
// to the identity JSON, expiring after redisx.TTLSession.
type SessionStore struct {
	Redis *redis.Client
}

func (s *SessionStore) Create(ctx context.Context, id Identity) (string, error) {
	token := uuid.NewString()
	b, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf(redisx.KeySession, token)
	if err := s.Redis.Set(ctx, key, b, redisx.TTLSession).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (Identity, error) {
	key := fmt.Sprintf(redisx.KeySession, token)
	b, err := s.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrNotAuthenticated
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", err)
	}
	return id, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeySession, token)).Err()
}
