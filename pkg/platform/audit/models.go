package audit

import (
	"strings"
	"time"

	dErrors "hrdms/pkg/domain-errors"
)

// Action is the closed set of verbs an audit record can carry.
type Action string

const (
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionUpload         Action = "upload"
	ActionDownload       Action = "download"
	ActionView           Action = "view"
	ActionActivate       Action = "activate"
	ActionDeactivate     Action = "deactivate"
	ActionLogin          Action = "login"
	ActionLogout         Action = "logout"
	ActionRefreshToken   Action = "refresh_token"
	ActionChangePassword Action = "change_password"
)

var validActions = map[Action]bool{
	ActionCreate:         true,
	ActionUpdate:         true,
	ActionDelete:         true,
	ActionUpload:         true,
	ActionDownload:       true,
	ActionView:           true,
	ActionActivate:       true,
	ActionDeactivate:     true,
	ActionLogin:          true,
	ActionLogout:         true,
	ActionRefreshToken:   true,
	ActionChangePassword: true,
}

// ParseAction validates external input against the closed action set.
func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(strings.ToLower(s)))
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "action must be one of the supported audit actions")
	}
	return a, nil
}

func (a Action) IsValid() bool  { return validActions[a] }
func (a Action) String() string { return string(a) }

// EntityType names the kind of object an action was performed on.
type EntityType string

const (
	EntityUser         EntityType = "user"
	EntityCollaborator EntityType = "collaborator"
	EntityDocument     EntityType = "document"
	EntityMinute       EntityType = "minute"
	EntityArea         EntityType = "area"
	EntitySubDivision  EntityType = "sub_division"
	EntityPosition     EntityType = "position"
	EntityDocumentType EntityType = "document_type"
)

var validEntityTypes = map[EntityType]bool{
	EntityUser:         true,
	EntityCollaborator: true,
	EntityDocument:     true,
	EntityMinute:       true,
	EntityArea:         true,
	EntitySubDivision:  true,
	EntityPosition:     true,
	EntityDocumentType: true,
}

// ParseEntityType validates external input against the closed entity type set.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.TrimSpace(strings.ToLower(s)))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "affected_entity_type must be one of the supported entity types")
	}
	return t, nil
}

func (t EntityType) IsValid() bool  { return validEntityTypes[t] }
func (t EntityType) String() string { return string(t) }

// Metadata is supplementary context attached to a record. It is never
// interpreted; NewRecord fixes its canonical shape so every store returns the
// same values.
type Metadata map[string]any

// Clone returns a deep copy so stored records cannot be mutated through
// values handed to callers.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Metadata(t).Clone())
	case Metadata:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Record is one completed, attributable action. It is immutable once
// persisted: there is no update or delete path anywhere in the system.
//
// Invariants:
//   - ActorID and EntityID are trimmed and non-empty
//   - Action and EntityType belong to their closed sets
//   - UpdatedAt always equals CreatedAt
//   - Metadata is nil or in canonical form
type Record struct {
	ID         string     `json:"id"`
	ActorID    string     `json:"actor_id"`
	Action     Action     `json:"action"`
	EntityType EntityType `json:"affected_entity_type"`
	EntityID   string     `json:"affected_entity_id"`
	Metadata   Metadata   `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Metadata = r.Metadata.Clone()
	return &c
}

// CreateRequest is the input of record ingestion.
type CreateRequest struct {
	ActorID    string     `json:"actor_id"`
	Action     Action     `json:"action"`
	EntityType EntityType `json:"affected_entity_type"`
	EntityID   string     `json:"affected_entity_id"`
	Metadata   Metadata   `json:"metadata,omitempty"`
}

// NewRecord validates req and builds a record stamped with now. Timestamps are
// normalized to UTC millisecond precision so every store round-trips them.
func NewRecord(id string, req CreateRequest, now time.Time) (*Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record id cannot be empty")
	}
	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "actor_id is required")
	}
	entityID := strings.TrimSpace(req.EntityID)
	if entityID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "affected_entity_id is required")
	}
	if !req.Action.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "action must be one of the supported audit actions")
	}
	if !req.EntityType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "affected_entity_type must be one of the supported entity types")
	}

	md, err := req.Metadata.Canonical()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "metadata must be JSON-serializable")
	}

	ts := NormalizeTime(now)
	return &Record{
		ID:         id,
		ActorID:    actorID,
		Action:     req.Action,
		EntityType: req.EntityType,
		EntityID:   entityID,
		Metadata:   md,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}, nil
}

// NormalizeTime truncates t to the precision shared by every store.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
