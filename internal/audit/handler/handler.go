// Package handler exposes the audit trail over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	auditsvc "hrdms/internal/audit"
	dErrors "hrdms/pkg/domain-errors"
	audit "hrdms/pkg/platform/audit"
	"hrdms/pkg/platform/httputil"
	"hrdms/pkg/requestcontext"
)

// Service is the audit use case surface the handler needs.
type Service interface {
	CreateRecord(ctx context.Context, req audit.CreateRequest) (*audit.Record, error)
	GetRecordByID(ctx context.Context, id string) (*audit.Record, bool, error)
	ListRecords(ctx context.Context, req auditsvc.ListRequest) (*auditsvc.ListResult, error)
	GetRecordsByEntity(ctx context.Context, entityType audit.EntityType, entityID string, limit, offset int) (*auditsvc.ListResult, error)
	GetRecordsByActor(ctx context.Context, actorID string, limit, offset int) (*auditsvc.ListResult, error)
}

type Handler struct {
	service     Service
	logger      *slog.Logger
	ingestGuard []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithIngestMiddleware wraps only POST /audit/records.
func WithIngestMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.ingestGuard = append(h.ingestGuard, mw...)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the audit routes on r. Authentication is applied by the
// caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(h.ingestGuard...).Post("/records", h.HandleCreate)
		r.Get("/records", h.HandleList)
		r.Get("/records/{id}", h.HandleGet)
		r.Get("/entities/{type}/{id}/records", h.HandleEntityHistory)
		r.Get("/actors/{id}/records", h.HandleActorHistory)
	})
}

// HandleCreate handles POST /audit/records.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	actorID := req.ActorID
	if actorID == "" {
		actorID = requestcontext.UserID(ctx)
	}

	record, err := h.service.CreateRecord(ctx, req.toCreateRequest(actorID))
	if err != nil {
		h.fail(ctx, w, "create audit record", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleGet handles GET /audit/records/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, found, err := h.service.GetRecordByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "get audit record", err)
		return
	}
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "audit record not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleList handles GET /audit/records.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := parseListRequest(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.ListRecords(ctx, req)
	if err != nil {
		h.fail(ctx, w, "list audit records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleEntityHistory handles GET /audit/entities/{type}/{id}/records.
func (h *Handler) HandleEntityHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType, err := audit.ParseEntityType(chi.URLParam(r, "type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, offset, err := parsePaging(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.GetRecordsByEntity(ctx, entityType, chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		h.fail(ctx, w, "list entity audit records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleActorHistory handles GET /audit/actors/{id}/records.
func (h *Handler) HandleActorHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset, err := parsePaging(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.GetRecordsByActor(ctx, chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		h.fail(ctx, w, "list actor audit records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.DebugContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
