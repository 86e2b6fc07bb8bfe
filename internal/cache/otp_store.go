package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/railmadad/backend/internal/auth"
)

const otpKeyPrefix = "auth:otp:"

func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisOTPStore keeps pending OTP challenges in Redis with a TTL.
type RedisOTPStore struct {
	client *redis.Client
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func (s *RedisOTPStore) Put(ctx context.Context, phone string, c auth.Challenge, ttl time.Duration) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, otpKeyPrefix+phone, raw, ttl).Err()
}

func (s *RedisOTPStore) Get(ctx context.Context, phone string) (*auth.Challenge, error) {
	raw, err := s.client.Get(ctx, otpKeyPrefix+phone).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out auth.Challenge
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, otpKeyPrefix+phone).Err()
}

// MemoryOTPStore is the single-process fallback when REDIS_URL is unset.
type MemoryOTPStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	challenge auth.Challenge
	exp       time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{items: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryOTPStore) Put(ctx context.Context, phone string, c auth.Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[phone] = memoryEntry{challenge: c, exp: s.now().Add(ttl)}
	return nil
}

func (s *MemoryOTPStore) Get(ctx context.Context, phone string) (*auth.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[phone]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.exp) {
		delete(s.items, phone)
		return nil, nil
	}
	c := e.challenge
	return &c, nil
}

func (s *MemoryOTPStore) Delete(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, phone)
	return nil
}
