package events

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Envelope is the wire form of an event: its name plus the JSON payload.
type Envelope struct {
	Name    Name            `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

type decodeFunc func(json.RawMessage) (Event, error)

func decoderFor[T Event]() decodeFunc {
	return func(raw json.RawMessage) (Event, error) {
		var e T
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		return e, nil
	}
}

var registry = buildRegistry()

func buildRegistry() map[Name]decodeFunc {
	r := map[Name]decodeFunc{
		UserCreated:         decoderFor[UserCreatedEvent](),
		UserUpdated:         decoderFor[UserUpdatedEvent](),
		UserDeleted:         decoderFor[UserDeletedEvent](),
		UserActivated:       decoderFor[UserActivatedEvent](),
		UserDeactivated:     decoderFor[UserDeactivatedEvent](),
		UserPasswordChanged: decoderFor[UserPasswordChangedEvent](),

		CollaboratorCreated:     decoderFor[CollaboratorCreatedEvent](),
		CollaboratorUpdated:     decoderFor[CollaboratorUpdatedEvent](),
		CollaboratorDeleted:     decoderFor[CollaboratorDeletedEvent](),
		CollaboratorActivated:   decoderFor[CollaboratorActivatedEvent](),
		CollaboratorDeactivated: decoderFor[CollaboratorDeactivatedEvent](),
		CollaboratorViewed:      decoderFor[CollaboratorViewedEvent](),

		DocumentUploaded:   decoderFor[DocumentUploadedEvent](),
		DocumentUpdated:    decoderFor[DocumentUpdatedEvent](),
		DocumentDeleted:    decoderFor[DocumentDeletedEvent](),
		DocumentDownloaded: decoderFor[DocumentDownloadedEvent](),
		DocumentViewed:     decoderFor[DocumentViewedEvent](),

		MinuteCreated:      decoderFor[MinuteCreatedEvent](),
		MinuteUpdated:      decoderFor[MinuteUpdatedEvent](),
		MinuteDeleted:      decoderFor[MinuteDeletedEvent](),
		MinuteFileUploaded: decoderFor[MinuteFileUploadedEvent](),
		MinuteDownloaded:   decoderFor[MinuteDownloadedEvent](),

		SessionStarted:        decoderFor[SessionStartedEvent](),
		SessionEnded:          decoderFor[SessionEndedEvent](),
		SessionTokenRefreshed: decoderFor[SessionTokenRefreshedEvent](),
		SessionLoginFailed:    decoderFor[SessionLoginFailedEvent](),
	}
	for _, k := range Kinds() {
		r[CatalogName(k, VerbCreated)] = decoderFor[CatalogCreatedEvent]()
		r[CatalogName(k, VerbUpdated)] = decoderFor[CatalogUpdatedEvent]()
		r[CatalogName(k, VerbDeleted)] = decoderFor[CatalogDeletedEvent]()
		r[CatalogName(k, VerbActivated)] = decoderFor[CatalogActivatedEvent]()
		r[CatalogName(k, VerbDeactivated)] = decoderFor[CatalogDeactivatedEvent]()
	}
	return r
}

// Names returns every registered event name in sorted order.
func Names() []Name {
	names := make([]Name, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Known reports whether name is a registered event.
func Known(name Name) bool {
	_, ok := registry[name]
	return ok
}

// Encode wraps e in an Envelope and marshals it.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.EventName(), err)
	}
	return json.Marshal(Envelope{Name: e.EventName(), Payload: payload})
}

// Decode parses an Envelope and returns the concrete event value. The decoded
// event must report the same name as the envelope.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	return DecodePayload(env.Name, env.Payload)
}

// DecodePayload decodes payload as the event registered under name.
func DecodePayload(name Name, payload json.RawMessage) (Event, error) {
	decode, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("decode event: unknown event name %q", name)
	}
	e, err := decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", name, err)
	}
	if e.EventName() != name {
		return nil, fmt.Errorf("decode event: payload describes %q, envelope says %q", e.EventName(), name)
	}
	return e, nil
}
