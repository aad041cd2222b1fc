// Package redis implements the device store and the distributed locker on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/funnel/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "funnel:"

// noExpiry is the index score used when devices never expire (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.DeviceStore using one Redis hash per device.
// An index ZSET scored by expiry time backs List.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the idle expiration of a device. Every write refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(deviceID string) string {
	return s.prefix + "device:" + deviceID
}

func (s *Store) indexKey() string {
	return s.prefix + "devices"
}

// Device returns the LocalStore of one device.
func (s *Store) Device(deviceID string) ports.LocalStore {
	return &Local{store: s, device: deviceID}
}

// List returns live devices. Expired entries are pruned from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired devices: %w", err)
	}

	devices, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Purge removes a device hash and its index entry.
func (s *Store) Purge(ctx context.Context, deviceID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(deviceID))
	pipe.ZRem(ctx, s.indexKey(), deviceID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to purge device: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) score() float64 {
	if s.ttl == 0 {
		return noExpiry
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Local implements ports.LocalStore on one device hash.
type Local struct {
	store  *Store
	device string
}

// Load returns the value stored under key.
func (l *Local) Load(ctx context.Context, key string) (string, bool, error) {
	val, err := l.store.client.HGet(ctx, l.store.key(l.device), key).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, true, nil
}

// Store writes value under key and refreshes the device expiry.
func (l *Local) Store(ctx context.Context, key, value string) error {
	s := l.store
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(l.device), key, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(l.device), s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: l.device})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Clear removes key. The device leaves the index once its hash is empty.
func (l *Local) Clear(ctx context.Context, key string) error {
	s := l.store
	if err := s.client.HDel(ctx, s.key(l.device), key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	n, err := s.client.HLen(ctx, s.key(l.device)).Result()
	if err != nil {
		return fmt.Errorf("failed to inspect device: %w", err)
	}
	if n == 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), l.device).Err(); err != nil {
			return fmt.Errorf("failed to update device index: %w", err)
		}
	}
	return nil
}
