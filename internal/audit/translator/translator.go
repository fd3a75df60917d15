// Package translator maps domain events onto audit record requests. It is pure:
// no I/O, no clock, no randomness.
package translator

import (
	"reflect"
	"strings"

	"github.com/mssola/useragent"

	"hrdms/internal/events"
	audit "hrdms/pkg/platform/audit"
	strs "hrdms/pkg/platform/strings"
)

// Translate returns the record request for e, or ok=false when the event is
// not audit-worthy or cannot be attributed to an actor and an entity.
//
// Only creation events fall back to the author recorded on the created object
// when the event carries no actor.
func Translate(e events.Event) (req audit.CreateRequest, ok bool) {
	switch ev := valueOf(e).(type) {
	// account
	case events.UserCreatedEvent:
		return build(strs.FirstNonEmpty(ev.Actor(), ev.User.CreatedBy), audit.ActionCreate, audit.EntityUser, ev.User.ID,
			snapshot{}.with("email", ev.User.Email).with("username", ev.User.Username).with("role", ev.User.Role))
	case events.UserUpdatedEvent:
		return build(ev.Actor(), audit.ActionUpdate, audit.EntityUser, ev.User.ID,
			changed(ev.ChangedFields).with("email", ev.User.Email))
	case events.UserDeletedEvent:
		return build(ev.Actor(), audit.ActionDelete, audit.EntityUser, ev.UserID,
			snapshot{}.with("email", ev.Email))
	case events.UserActivatedEvent:
		return build(ev.Actor(), audit.ActionActivate, audit.EntityUser, ev.UserID, previous(ev.PreviousStatus))
	case events.UserDeactivatedEvent:
		return build(ev.Actor(), audit.ActionDeactivate, audit.EntityUser, ev.UserID, previous(ev.PreviousStatus))
	case events.UserPasswordChangedEvent:
		return build(ev.Actor(), audit.ActionChangePassword, audit.EntityUser, ev.UserID, nil)

	// personnel
	case events.CollaboratorCreatedEvent:
		c := ev.Collaborator
		return build(strs.FirstNonEmpty(ev.Actor(), c.CreatedBy), audit.ActionCreate, audit.EntityCollaborator, c.ID,
			snapshot{}.with("employee_number", c.EmployeeNumber).with("full_name", c.FullName))
	case events.CollaboratorUpdatedEvent:
		c := ev.Collaborator
		return build(ev.Actor(), audit.ActionUpdate, audit.EntityCollaborator, c.ID,
			changed(ev.ChangedFields).with("employee_number", c.EmployeeNumber))
	case events.CollaboratorDeletedEvent:
		return build(ev.Actor(), audit.ActionDelete, audit.EntityCollaborator, ev.CollaboratorID,
			snapshot{}.with("employee_number", ev.EmployeeNumber))
	case events.CollaboratorActivatedEvent:
		return build(ev.Actor(), audit.ActionActivate, audit.EntityCollaborator, ev.CollaboratorID, previous(ev.PreviousStatus))
	case events.CollaboratorDeactivatedEvent:
		return build(ev.Actor(), audit.ActionDeactivate, audit.EntityCollaborator, ev.CollaboratorID, previous(ev.PreviousStatus))
	case events.CollaboratorViewedEvent:
		return build(ev.Actor(), audit.ActionView, audit.EntityCollaborator, ev.CollaboratorID, nil)

	// files
	case events.DocumentUploadedEvent:
		d := ev.Document
		return build(strs.FirstNonEmpty(ev.Actor(), d.UploadedBy), audit.ActionUpload, audit.EntityDocument, d.ID,
			file(d.FileName, d.MimeType, d.SizeBytes).
				with("collaborator_id", d.CollaboratorID).
				with("document_type_id", d.DocumentTypeID))
	case events.DocumentUpdatedEvent:
		return build(ev.Actor(), audit.ActionUpdate, audit.EntityDocument, ev.Document.ID,
			changed(ev.ChangedFields).with("file_name", ev.Document.FileName))
	case events.DocumentDeletedEvent:
		return build(ev.Actor(), audit.ActionDelete, audit.EntityDocument, ev.DocumentID,
			snapshot{}.with("file_name", ev.FileName))
	case events.DocumentDownloadedEvent:
		d := ev.Document
		return build(ev.Actor(), audit.ActionDownload, audit.EntityDocument, d.ID, file(d.FileName, d.MimeType, d.SizeBytes))
	case events.DocumentViewedEvent:
		return build(ev.Actor(), audit.ActionView, audit.EntityDocument, ev.DocumentID, nil)

	// minutes
	case events.MinuteCreatedEvent:
		m := ev.Minute
		return build(strs.FirstNonEmpty(ev.Actor(), m.CreatedBy), audit.ActionCreate, audit.EntityMinute, m.ID,
			snapshot{}.with("title", m.Title).with("meeting_date", m.MeetingDate))
	case events.MinuteUpdatedEvent:
		return build(ev.Actor(), audit.ActionUpdate, audit.EntityMinute, ev.Minute.ID,
			changed(ev.ChangedFields).with("title", ev.Minute.Title))
	case events.MinuteDeletedEvent:
		return build(ev.Actor(), audit.ActionDelete, audit.EntityMinute, ev.MinuteID,
			snapshot{}.with("title", ev.Title))
	case events.MinuteFileUploadedEvent:
		return build(ev.Actor(), audit.ActionUpload, audit.EntityMinute, ev.MinuteID,
			file(ev.File.FileName, ev.File.MimeType, ev.File.SizeBytes))
	case events.MinuteDownloadedEvent:
		return build(ev.Actor(), audit.ActionDownload, audit.EntityMinute, ev.MinuteID,
			file(ev.File.FileName, ev.File.MimeType, ev.File.SizeBytes))

	// catalogs
	case events.CatalogCreatedEvent:
		it := ev.Item
		return buildCatalog(strs.FirstNonEmpty(ev.Actor(), it.CreatedBy), audit.ActionCreate, it.Kind, it.ID,
			snapshot{}.with("code", it.Code).with("name", it.Name).with("parent_id", it.ParentID))
	case events.CatalogUpdatedEvent:
		it := ev.Item
		return buildCatalog(ev.Actor(), audit.ActionUpdate, it.Kind, it.ID,
			changed(ev.ChangedFields).with("code", it.Code).with("name", it.Name))
	case events.CatalogDeletedEvent:
		return buildCatalog(ev.Actor(), audit.ActionDelete, ev.Kind, ev.ItemID, snapshot{}.with("name", ev.Name))
	case events.CatalogActivatedEvent:
		return buildCatalog(ev.Actor(), audit.ActionActivate, ev.Kind, ev.ItemID, previous(ev.PreviousStatus))
	case events.CatalogDeactivatedEvent:
		return buildCatalog(ev.Actor(), audit.ActionDeactivate, ev.Kind, ev.ItemID, previous(ev.PreviousStatus))

	// sessions
	case events.SessionStartedEvent:
		return buildSession(ev.Actor(), audit.ActionLogin, ev.Session)
	case events.SessionEndedEvent:
		return buildSession(ev.Actor(), audit.ActionLogout, ev.Session)
	case events.SessionTokenRefreshedEvent:
		return buildSession(ev.Actor(), audit.ActionRefreshToken, ev.Session)
	case events.SessionLoginFailedEvent:
		return audit.CreateRequest{}, false

	default:
		return audit.CreateRequest{}, false
	}
}

func build(actor string, action audit.Action, entityType audit.EntityType, entityID string, md snapshot) (audit.CreateRequest, bool) {
	actor = strings.TrimSpace(actor)
	entityID = strings.TrimSpace(entityID)
	if actor == "" || entityID == "" {
		return audit.CreateRequest{}, false
	}
	req := audit.CreateRequest{
		ActorID:    actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if len(md) > 0 {
		req.Metadata = audit.Metadata(md)
	}
	return req, true
}

var catalogEntities = map[events.Kind]audit.EntityType{
	events.KindArea:         audit.EntityArea,
	events.KindSubDivision:  audit.EntitySubDivision,
	events.KindPosition:     audit.EntityPosition,
	events.KindDocumentType: audit.EntityDocumentType,
}

// valueOf unwraps events published by pointer so they match the value cases.
func valueOf(e events.Event) events.Event {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return e
	}
	if inner, ok := v.Elem().Interface().(events.Event); ok {
		return inner
	}
	return e
}

func buildCatalog(actor string, action audit.Action, kind events.Kind, itemID string, md snapshot) (audit.CreateRequest, bool) {
	entityType, ok := catalogEntities[kind]
	if !ok {
		return audit.CreateRequest{}, false
	}
	return build(actor, action, entityType, itemID, md)
}

// Session events are about the session's user, who is also the actor unless
// someone else (an administrator ending the session) is named. A session
// without a user id is taken to belong to its actor.
func buildSession(actor string, action audit.Action, s events.Session) (audit.CreateRequest, bool) {
	md := snapshot{}.
		with("session_id", s.ID).
		with("ip", s.IP).
		with("user_agent", s.UserAgent)
	for k, v := range clientInfo(s.UserAgent) {
		md[k] = v
	}
	return build(strs.FirstNonEmpty(actor, s.UserID), action, audit.EntityUser, strs.FirstNonEmpty(s.UserID, actor), md)
}

func clientInfo(raw string) snapshot {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	ua := useragent.New(raw)
	browser, version := ua.Browser()
	info := snapshot{}.with("os", ua.OS())
	if browser != "" {
		info = info.with("browser", strings.TrimSpace(browser+" "+version))
	}
	if len(info) == 0 {
		return nil
	}
	info["mobile"] = ua.Mobile()
	return info
}

// snapshot accumulates metadata, skipping zero values.
type snapshot map[string]any

func (s snapshot) with(key string, value any) snapshot {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return s
		}
	case int64:
		if v == 0 {
			return s
		}
	case []string:
		if len(v) == 0 {
			return s
		}
	case nil:
		return s
	}
	if s == nil {
		s = snapshot{}
	}
	s[key] = value
	return s
}

func changed(fields []string) snapshot {
	return snapshot{}.with("changed_fields", strs.SortedSet(fields))
}

func previous(status string) snapshot {
	return snapshot{}.with("previous_status", status)
}

func file(name, mime string, size int64) snapshot {
	return snapshot{}.with("file_name", name).with("mime_type", mime).with("size_bytes", size)
}
