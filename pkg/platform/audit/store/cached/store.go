// Package cached puts a Redis read-through cache in front of an audit.Store.
// Records never change after they are written, so cached entries only expire
// to bound memory.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	audit "hrdms/pkg/platform/audit"
)

const keyPrefix = "audit:record:"

// Store decorates an audit.Store. Cache failures are logged and the call
// falls through to the underlying store.
type Store struct {
	next   audit.Store
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func New(next audit.Store, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{next: next, client: client, ttl: ttl, logger: logger}
}

func key(id string) string { return keyPrefix + id }

func (s *Store) Append(ctx context.Context, record *audit.Record) error {
	if err := s.next.Append(ctx, record); err != nil {
		return err
	}
	s.put(ctx, record)
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*audit.Record, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		if record, jsonErr := decode(raw); jsonErr == nil {
			return record, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable cached audit record", "record_id", id)
	case !errors.Is(err, redis.Nil):
		s.logger.WarnContext(ctx, "audit cache read failed", "record_id", id, "error", err)
	}

	record, err := s.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, record)
	return record, nil
}

func (s *Store) put(ctx context.Context, record *audit.Record) {
	raw, err := encode(record)
	if err != nil {
		s.logger.WarnContext(ctx, "audit cache encode failed", "record_id", record.ID, "error", err)
		return
	}
	if err := s.client.Set(ctx, key(record.ID), raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "audit cache write failed", "record_id", record.ID, "error", err)
	}
}

func (s *Store) Query(ctx context.Context, q audit.Query) (*audit.Page, error) {
	return s.next.Query(ctx, q)
}

func (s *Store) ListByActor(ctx context.Context, actorID string, p audit.Pagination) (*audit.Page, error) {
	return s.next.ListByActor(ctx, actorID, p)
}

func (s *Store) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, p audit.Pagination) (*audit.Page, error) {
	return s.next.ListByEntity(ctx, entityType, entityID, p)
}

func encode(record *audit.Record) ([]byte, error) {
	return json.Marshal(record)
}

// decode relies on audit.Metadata's decoder so cached records carry the same
// metadata values as the store behind the cache.
func decode(raw []byte) (*audit.Record, error) {
	var record audit.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
