// Package dispatch turns domain events published on the bus into audit
// records. Auditing never fails the operation that raised the event: every
// error and panic stops here.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hrdms/internal/audit/metrics"
	"hrdms/internal/audit/translator"
	"hrdms/internal/events"
	"hrdms/internal/platform/eventbus"
	audit "hrdms/pkg/platform/audit"
)

// Ingestor persists one audit record.
type Ingestor interface {
	CreateRecord(ctx context.Context, req audit.CreateRequest) (*audit.Record, error)
}

type Handler struct {
	ingestor Ingestor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) {
		h.tracer = t
	}
}

func NewHandler(ingestor Ingestor, opts ...Option) *Handler {
	h := &Handler{
		ingestor: ingestor,
		logger:   slog.Default(),
		tracer:   otel.Tracer("hrdms/internal/audit/dispatch"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle records e in the audit trail if it is auditable.
func (h *Handler) Handle(ctx context.Context, e events.Event) {
	if e == nil {
		return
	}
	start := time.Now()
	name := string(e.EventName())

	ctx, span := h.tracer.Start(ctx, "audit.HandleEvent", trace.WithAttributes(
		attribute.String("event.name", name),
		attribute.String("event.id", e.EventID()),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
			h.fail(ctx, e, err, start)
		}
	}()

	req, ok := translator.Translate(e)
	if !ok {
		h.logger.DebugContext(ctx, "event not audited",
			"event_name", name,
			"event_id", e.EventID(),
		)
		h.metrics.ObserveEvent(name, metrics.OutcomeSkipped, time.Since(start))
		return
	}

	record, err := h.ingestor.CreateRecord(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create record failed")
		h.fail(ctx, e, err, start)
		return
	}

	h.metrics.ObserveEvent(name, metrics.OutcomeRecorded, time.Since(start))
	h.logger.DebugContext(ctx, "event audited",
		"event_name", name,
		"event_id", e.EventID(),
		"record_id", record.ID,
	)
}

func (h *Handler) fail(ctx context.Context, e events.Event, err error, start time.Time) {
	h.metrics.ObserveEvent(string(e.EventName()), metrics.OutcomeFailed, time.Since(start))
	h.logger.ErrorContext(ctx, "failed to audit event",
		"event_name", e.EventName(),
		"event_id", e.EventID(),
		"actor_id", e.Actor(),
		"error", err,
	)
}

// Subscribe attaches h to every known event name. It does nothing when
// enabled is false, so published events produce no records.
func Subscribe(bus eventbus.Subscriber, h *Handler, enabled bool) {
	if !enabled {
		h.logger.Info("audit subscriptions disabled")
		return
	}
	names := events.Names()
	for _, name := range names {
		bus.Subscribe(name, h.Handle)
	}
	h.logger.Info("audit subscriptions registered", "events", len(names))
}
