package audit

import (
	"context"
	"strings"
	"time"
)

// Store persists audit records. It is append-only: there is no Update or
// Delete method.
//
// FindByID returns sentinel.ErrNotFound (possibly wrapped) when no record has
// the given id. Returned records are copies; mutating them never changes
// stored state.
type Store interface {
	Append(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, id string) (*Record, error)
	Query(ctx context.Context, q Query) (*Page, error)
	ListByActor(ctx context.Context, actorID string, p Pagination) (*Page, error)
	ListByEntity(ctx context.Context, entityType EntityType, entityID string, p Pagination) (*Page, error)
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination is a limit/offset window.
type Pagination struct {
	Limit  int
	Offset int
}

// SortField is a whitelisted sort key.
type SortField string

const (
	SortByCreatedAt  SortField = "created_at"
	SortByAction     SortField = "action"
	SortByEntityType SortField = "affected_entity_type"
)

// ParseSortField accepts both snake_case and the camelCase names used by
// older clients.
func ParseSortField(s string) (SortField, bool) {
	switch strings.TrimSpace(s) {
	case "", "created_at", "createdAt":
		return SortByCreatedAt, true
	case "action":
		return SortByAction, true
	case "affected_entity_type", "affectedEntityType":
		return SortByEntityType, true
	}
	return "", false
}

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func ParseSortOrder(s string) (SortOrder, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return SortDesc, true
	case "asc":
		return SortAsc, true
	}
	return "", false
}

// Filter narrows a query. Zero-valued fields do not constrain.
// From and To are inclusive.
type Filter struct {
	ActorID    string
	Action     Action
	EntityType EntityType
	EntityID   string
	From       *time.Time
	To         *time.Time
}

// Matches reports whether r satisfies every set field of f.
func (f Filter) Matches(r *Record) bool {
	if f.ActorID != "" && r.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.EntityType != "" && r.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && r.EntityID != f.EntityID {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// Query is a fully resolved listing request as seen by stores.
type Query struct {
	Filter    Filter
	Page      Pagination
	SortBy    SortField
	SortOrder SortOrder
}

// Less orders a before b according to the query's sort, breaking ties on id so
// pagination is stable.
func (q Query) Less(a, b *Record) bool {
	var cmp int
	switch q.SortBy {
	case SortByAction:
		cmp = strings.Compare(string(a.Action), string(b.Action))
	case SortByEntityType:
		cmp = strings.Compare(string(a.EntityType), string(b.EntityType))
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if cmp == 0 {
		cmp = strings.Compare(a.ID, b.ID)
	}
	if q.SortOrder == SortAsc {
		return cmp < 0
	}
	return cmp > 0
}

// Page is one window of matching records plus the total match count.
type Page struct {
	Records []*Record `json:"records"`
	Total   int64     `json:"total"`
}
