package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/sentinel"
)

// InMemoryStore is an append-only audit store backed by a slice. Records are
// cloned on the way in and on the way out.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*audit.Record
	byID    map[string]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]int)}
}

func (s *InMemoryStore) Append(_ context.Context, record *audit.Record) error {
	if record == nil {
		return fmt.Errorf("append audit record: nil record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[record.ID]; exists {
		return fmt.Errorf("append audit record %s: duplicate id", record.ID)
	}
	s.byID[record.ID] = len(s.records)
	s.records = append(s.records, record.Clone())
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[idx].Clone(), nil
}

func (s *InMemoryStore) Query(_ context.Context, q audit.Query) (*audit.Page, error) {
	s.mu.RLock()
	matched := make([]*audit.Record, 0)
	for _, r := range s.records {
		if q.Filter.Matches(r) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return q.Less(matched[i], matched[j]) })

	page := &audit.Page{Records: []*audit.Record{}, Total: int64(len(matched))}
	start := min(q.Page.Offset, len(matched))
	end := len(matched)
	if q.Page.Limit > 0 {
		end = min(start+q.Page.Limit, len(matched))
	}
	for _, r := range matched[start:end] {
		page.Records = append(page.Records, r.Clone())
	}
	return page, nil
}

func (s *InMemoryStore) ListByActor(ctx context.Context, actorID string, p audit.Pagination) (*audit.Page, error) {
	return s.Query(ctx, audit.Query{
		Filter:    audit.Filter{ActorID: actorID},
		Page:      p,
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortDesc,
	})
}

func (s *InMemoryStore) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, p audit.Pagination) (*audit.Page, error) {
	return s.Query(ctx, audit.Query{
		Filter:    audit.Filter{EntityType: entityType, EntityID: entityID},
		Page:      p,
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortDesc,
	})
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
