package handler

import (
	"net/url"
	"strconv"
	"strings"

	auditsvc "hrdms/internal/audit"
	dErrors "hrdms/pkg/domain-errors"
	audit "hrdms/pkg/platform/audit"
)

const maxMetadataKeys = 64

// CreateRecordRequest is the body of POST /audit/records. ActorID defaults
// to the authenticated caller.
type CreateRecordRequest struct {
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"affected_entity_type"`
	EntityID   string         `json:"affected_entity_id"`
	Metadata   audit.Metadata `json:"metadata,omitempty"`

	parsedAction     audit.Action
	parsedEntityType audit.EntityType
}

func (r *CreateRecordRequest) Normalize() {
	r.ActorID = strings.TrimSpace(r.ActorID)
	r.Action = strings.TrimSpace(r.Action)
	r.EntityType = strings.TrimSpace(r.EntityType)
	r.EntityID = strings.TrimSpace(r.EntityID)
}

// Validate implements httputil.Validatable.
func (r *CreateRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Metadata) > maxMetadataKeys {
		return dErrors.New(dErrors.CodeValidation, "metadata has too many keys")
	}
	if r.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}
	action, err := audit.ParseAction(r.Action)
	if err != nil {
		return err
	}
	r.parsedAction = action

	if r.EntityType == "" {
		return dErrors.New(dErrors.CodeValidation, "affected_entity_type is required")
	}
	entityType, err := audit.ParseEntityType(r.EntityType)
	if err != nil {
		return err
	}
	r.parsedEntityType = entityType

	if r.EntityID == "" {
		return dErrors.New(dErrors.CodeValidation, "affected_entity_id is required")
	}
	return nil
}

func (r *CreateRecordRequest) toCreateRequest(actorID string) audit.CreateRequest {
	var md audit.Metadata
	if len(r.Metadata) > 0 {
		md = r.Metadata
	}
	return audit.CreateRequest{
		ActorID:    actorID,
		Action:     r.parsedAction,
		EntityType: r.parsedEntityType,
		EntityID:   r.EntityID,
		Metadata:   md,
	}
}

func parseListRequest(q url.Values) (auditsvc.ListRequest, error) {
	limit, offset, err := parsePaging(q)
	if err != nil {
		return auditsvc.ListRequest{}, err
	}
	return auditsvc.ListRequest{
		ActorID:    q.Get("actor_id"),
		Action:     q.Get("action"),
		EntityType: q.Get("affected_entity_type"),
		EntityID:   q.Get("affected_entity_id"),
		From:       audit.ISO(q.Get("from")),
		To:         audit.ISO(q.Get("to")),
		Limit:      limit,
		Offset:     offset,
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
	}, nil
}

func parsePaging(q url.Values) (limit, offset int, err error) {
	if limit, err = intParam(q, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(q, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be an integer")
	}
	return n, nil
}
