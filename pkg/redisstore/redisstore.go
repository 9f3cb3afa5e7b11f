// Package redisstore keeps fiber sessions in Redis so that any replica can
// serve any request of a visitor.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 3 * time.Second

// Storage implements fiber.Storage on go-redis.
type Storage struct {
	client *redis.Client
	prefix string
}

// New connects to addr. Keys are namespaced as "<service>:session:<id>".
func New(addr, serviceName string) *Storage {
	return &Storage{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: fmt.Sprintf("%s:session:", serviceName),
	}
}

// Key returns the redis key of a session id.
func (s *Storage) Key(id string) string {
	return s.prefix + id
}

// Ping checks connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores val; exp of zero means no expiration.
func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Set(ctx, s.Key(key), val, exp).Err()
}

// Delete removes key.
func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Del(ctx, s.Key(key)).Err()
}

// Reset removes every session of this service, leaving other keys alone.
func (s *Storage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close closes the client.
func (s *Storage) Close() error {
	return s.client.Close()
}
