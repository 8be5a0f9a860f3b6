// Package session supplies the bearer token attached to storefront API calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/travelsync/config"
	"github.com/redis/go-redis/v9"
)

// TokenSource returns the current bearer token, "" when there is no session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is an in-process token holder. Set("") logs out.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *StaticToken) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Save and Delete let a StaticToken stand in for a token store. The ttl is
// ignored: the token lives as long as the process.
func (s *StaticToken) Save(_ context.Context, token string, _ time.Duration) error {
	s.Set(token)
	return nil
}

func (s *StaticToken) Delete(context.Context) error {
	s.Set("")
	return nil
}

// RedisTokenStore keeps tokens in Redis under session:<id>, shared by every
// BFF process serving the same user session.
type RedisTokenStore struct {
	client    *redis.Client
	sessionID string
}

func NewRedisTokenStore(cfg config.RedisConfig, sessionID string) *RedisTokenStore {
	return &RedisTokenStore{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		sessionID: sessionID,
	}
}

// NewRedisTokenStoreWithClient wraps an existing client.
func NewRedisTokenStoreWithClient(client *redis.Client, sessionID string) *RedisTokenStore {
	return &RedisTokenStore{client: client, sessionID: sessionID}
}

func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, sessionKey(s.sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("read session token: %w", err)
	}
	return token, nil
}

// Save stores the token for the session. ttl of zero keeps it until Delete.
func (s *RedisTokenStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(s.sessionID), token, ttl).Err()
}

// Delete ends the session.
func (s *RedisTokenStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, sessionKey(s.sessionID)).Err()
}

func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

func sessionKey(id string) string {
	return "session:" + id
}
