// Package snapshot persists ledger snapshots to Redis so a restarted server
// resumes from the last applied mutation without waiting for the remote
// store.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store keeps the latest ledger snapshot under a single string key.
type Store struct {
	client *redis.Client
	key    string
}

// NewStore constructs a Store writing to the given key.
func NewStore(client *redis.Client, key string) *Store {
	return &Store{client: client, key: key}
}

// Save overwrites the stored snapshot. Snapshots have no TTL; the latest
// state must survive arbitrary downtime.
func (s *Store) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot: save: %w", err)
	}
	return nil
}

// Load returns the stored snapshot. A missing key yields (nil, nil) so the
// caller starts from fresh state.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: load: %w", err)
	}
	return data, nil
}
