package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/sentinel"
)

const CollectionAuditRecords = "audit_records"

const (
	fieldID         = "_id"
	fieldActorID    = "actor_id"
	fieldAction     = "action"
	fieldEntityType = "affected_entity_type"
	fieldEntityID   = "affected_entity_id"
	fieldCreatedAt  = "created_at"
)

// document is the persisted shape of an audit record.
type document struct {
	ID         string         `bson:"_id"`
	ActorID    string         `bson:"actor_id"`
	Action     string         `bson:"action"`
	EntityType string         `bson:"affected_entity_type"`
	EntityID   string         `bson:"affected_entity_id"`
	Metadata   map[string]any `bson:"metadata,omitempty"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
}

// Store implements audit.Store on a MongoDB collection. Documents are only
// ever inserted.
type Store struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

func New(db *mongo.Database, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		collection: db.Collection(CollectionAuditRecords),
		logger:     logger.With("component", "audit_mongo_store"),
	}
}

// EnsureIndexes creates the lookup indexes used by the list queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: fieldActorID, Value: 1}, {Key: fieldCreatedAt, Value: -1}}},
		{Keys: bson.D{{Key: fieldEntityType, Value: 1}, {Key: fieldEntityID, Value: 1}, {Key: fieldCreatedAt, Value: -1}}},
		{Keys: bson.D{{Key: fieldCreatedAt, Value: -1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, record *audit.Record) error {
	if record == nil {
		return fmt.Errorf("append audit record: nil record")
	}
	doc := document{
		ID:         record.ID,
		ActorID:    record.ActorID,
		Action:     string(record.Action),
		EntityType: string(record.EntityType),
		EntityID:   record.EntityID,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	if len(record.Metadata) > 0 {
		doc.Metadata = map[string]any(record.Metadata.Clone())
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("append audit record %s: duplicate id", record.ID)
		}
		s.logger.ErrorContext(ctx, "audit record insert failed", "error", err, "record_id", record.ID)
		return storeErr("insert audit record", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*audit.Record, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{fieldID: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "audit record lookup failed", "error", err, "record_id", id)
		return nil, storeErr("find audit record", err)
	}
	return doc.toRecord(), nil
}

func (s *Store) Query(ctx context.Context, q audit.Query) (*audit.Page, error) {
	filter := buildFilter(q.Filter)

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit record count failed", "error", err)
		return nil, storeErr("count audit records", err)
	}

	opts := options.Find().SetSort(sortDoc(q))
	if q.Page.Limit > 0 {
		opts.SetLimit(int64(q.Page.Limit))
	}
	if q.Page.Offset > 0 {
		opts.SetSkip(int64(q.Page.Offset))
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit record find failed", "error", err)
		return nil, storeErr("find audit records", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr("decode audit records", err)
	}

	page := &audit.Page{Records: make([]*audit.Record, 0, len(docs)), Total: total}
	for i := range docs {
		page.Records = append(page.Records, docs[i].toRecord())
	}
	return page, nil
}

func (s *Store) ListByActor(ctx context.Context, actorID string, p audit.Pagination) (*audit.Page, error) {
	return s.Query(ctx, audit.Query{
		Filter:    audit.Filter{ActorID: actorID},
		Page:      p,
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortDesc,
	})
}

func (s *Store) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, p audit.Pagination) (*audit.Page, error) {
	return s.Query(ctx, audit.Query{
		Filter:    audit.Filter{EntityType: entityType, EntityID: entityID},
		Page:      p,
		SortBy:    audit.SortByCreatedAt,
		SortOrder: audit.SortDesc,
	})
}

// storeErr marks connectivity failures with sentinel.ErrUnavailable.
func storeErr(op string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func buildFilter(f audit.Filter) bson.M {
	filter := bson.M{}
	if f.ActorID != "" {
		filter[fieldActorID] = f.ActorID
	}
	if f.Action != "" {
		filter[fieldAction] = string(f.Action)
	}
	if f.EntityType != "" {
		filter[fieldEntityType] = string(f.EntityType)
	}
	if f.EntityID != "" {
		filter[fieldEntityID] = f.EntityID
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = *f.From
		}
		if f.To != nil {
			rng["$lte"] = *f.To
		}
		filter[fieldCreatedAt] = rng
	}
	return filter
}

var sortFields = map[audit.SortField]string{
	audit.SortByCreatedAt:  fieldCreatedAt,
	audit.SortByAction:     fieldAction,
	audit.SortByEntityType: fieldEntityType,
}

func sortDoc(q audit.Query) bson.D {
	field, ok := sortFields[q.SortBy]
	if !ok {
		field = fieldCreatedAt
	}
	dir := -1
	if q.SortOrder == audit.SortAsc {
		dir = 1
	}
	return bson.D{{Key: field, Value: dir}, {Key: fieldID, Value: dir}}
}

func (d document) toRecord() *audit.Record {
	r := &audit.Record{
		ID:         d.ID,
		ActorID:    d.ActorID,
		Action:     audit.Action(d.Action),
		EntityType: audit.EntityType(d.EntityType),
		EntityID:   d.EntityID,
		CreatedAt:  audit.NormalizeTime(d.CreatedAt),
		UpdatedAt:  audit.NormalizeTime(d.UpdatedAt),
	}
	if len(d.Metadata) > 0 {
		r.Metadata = make(audit.Metadata, len(d.Metadata))
		for k, v := range d.Metadata {
			r.Metadata[k] = plain(v)
		}
	}
	return r
}

// plain converts driver-specific BSON values back to canonical metadata
// shapes.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	case int32:
		return int64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
