// Package audit implements record ingestion and the audit trail read queries.
package audit

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hrdms/internal/audit/metrics"
	dErrors "hrdms/pkg/domain-errors"
	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/sentinel"
	"hrdms/pkg/requestcontext"
)

// RecordStore is the persistence port for audit records.
type RecordStore interface {
	Append(ctx context.Context, record *audit.Record) error
	FindByID(ctx context.Context, id string) (*audit.Record, error)
	Query(ctx context.Context, q audit.Query) (*audit.Page, error)
	ListByActor(ctx context.Context, actorID string, p audit.Pagination) (*audit.Page, error)
	ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string, p audit.Pagination) (*audit.Page, error)
}

// Service owns record ingestion and the read queries.
type Service struct {
	store   RecordStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func(ctx context.Context) time.Time
	newID   func() string
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithClock overrides the request-scoped clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = func(context.Context) time.Time { return now() }
	}
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

func New(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("hrdms/internal/audit"),
		now:    requestcontext.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRecord validates req, stamps id and timestamps, and appends the
// record. It is not idempotent: the same request twice yields two records.
func (s *Service) CreateRecord(ctx context.Context, req audit.CreateRequest) (*audit.Record, error) {
	ctx, span := s.tracer.Start(ctx, "audit.CreateRecord", trace.WithAttributes(
		attribute.String("audit.action", string(req.Action)),
		attribute.String("audit.entity_type", string(req.EntityType)),
	))
	defer span.End()

	record, err := audit.NewRecord(s.newID(), req, s.now(ctx))
	if err != nil {
		s.metrics.IncCreateFailure("validation")
		span.SetStatus(codes.Error, "invalid request")
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.store.Append(ctx, record); err != nil {
		s.metrics.IncCreateFailure("store")
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, storeError(err, "failed to store audit record")
	}

	span.SetAttributes(attribute.String("audit.record_id", record.ID))
	s.metrics.IncRecordCreated(string(record.Action), string(record.EntityType))
	s.logger.DebugContext(ctx, "audit record created",
		"record_id", record.ID,
		"actor_id", record.ActorID,
		"action", record.Action,
		"affected_entity_type", record.EntityType,
		"affected_entity_id", record.EntityID,
	)
	return record, nil
}

// GetRecordByID returns found=false, with no error, when no record has id.
func (s *Service) GetRecordByID(ctx context.Context, id string) (*audit.Record, bool, error) {
	defer s.observe("get_by_id", time.Now())

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "id is required")
	}
	record, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError(err, "failed to load audit record")
	}
	return record, true, nil
}

// ListRecords runs a filtered, sorted, paginated listing.
func (s *Service) ListRecords(ctx context.Context, req ListRequest) (*ListResult, error) {
	defer s.observe("list", time.Now())

	q, err := req.toQuery()
	if err != nil {
		return nil, err
	}
	page, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, storeError(err, "failed to list audit records")
	}
	return newListResult(page, q.Page), nil
}

// GetRecordsByEntity returns the history of one affected entity, newest first.
func (s *Service) GetRecordsByEntity(ctx context.Context, entityType audit.EntityType, entityID string, limit, offset int) (*ListResult, error) {
	defer s.observe("by_entity", time.Now())

	if !entityType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "affected_entity_type must be one of the supported entity types")
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "affected_entity_id is required")
	}
	p, err := ResolvePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	page, err := s.store.ListByEntity(ctx, entityType, entityID, p)
	if err != nil {
		return nil, storeError(err, "failed to list entity audit records")
	}
	return newListResult(page, p), nil
}

// GetRecordsByActor returns everything one user did, newest first.
func (s *Service) GetRecordsByActor(ctx context.Context, actorID string, limit, offset int) (*ListResult, error) {
	defer s.observe("by_actor", time.Now())

	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "actor_id is required")
	}
	p, err := ResolvePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	page, err := s.store.ListByActor(ctx, actorID, p)
	if err != nil {
		return nil, storeError(err, "failed to list actor audit records")
	}
	return newListResult(page, p), nil
}

// storeError translates a store failure into a domain error.
func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "audit store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) observe(query string, start time.Time) {
	s.metrics.ObserveQuery(query, time.Since(start))
}
