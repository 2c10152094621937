// Package redis provides a ports.RunStore backed by Redis. Snapshots are
// stored as JSON values with an optional TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/graft/pkg/domain"
)

const defaultPrefix = "graft:run:"

// Store implements ports.RunStore on a Redis client.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration // zero = no expiration
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithTTL sets an expiration on stored snapshots.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix overrides the key prefix (default "graft:run:").
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

// NewFromClient creates a store on an existing Redis client.
func NewFromClient(client *backend.Client, opts ...StoreOption) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(runID string) string {
	return s.prefix + runID
}

// Save persists the snapshot as JSON.
func (s *Store) Save(ctx context.Context, run *domain.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	if err := s.client.Set(ctx, s.key(run.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis save run %s: %w", run.ID, err)
	}
	return nil
}

// Load retrieves and decodes the snapshot.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Run, error) {
	payload, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load run %s: %w", runID, err)
	}

	var run domain.Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, s.key(runID)).Err(); err != nil {
		return fmt.Errorf("redis delete run %s: %w", runID, err)
	}
	return nil
}

// List scans for stored run IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list runs: %w", err)
		}
		for _, key := range keys {
			ids = append(ids, strings.TrimPrefix(key, s.prefix))
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}
