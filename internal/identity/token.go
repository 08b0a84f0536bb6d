package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pulseboard/pulseboard/internal/shared"
)

// TokenStore issues and verifies opaque bearer tokens backed by Redis.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func tokenKey(token string) string {
	return "auth:token:" + token
}

// Issue creates a fresh token for the identity.
func (s *TokenStore) Issue(ctx context.Context, identityID uuid.UUID) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKey(token), identityID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("identity: issue token: %w", err)
	}
	return token, nil
}

// Verify resolves a token to an identity id. Unknown or expired tokens
// surface shared.ErrUnauthorized.
func (s *TokenStore) Verify(ctx context.Context, token string) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err == redis.Nil {
		return uuid.Nil, shared.ErrUnauthorized
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity: verify token: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.ErrUnauthorized
	}
	return id, nil
}

// Revoke deletes a token. Revoking an unknown token is a no-op.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("identity: revoke token: %w", err)
	}
	return nil
}
