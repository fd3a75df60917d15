package events

// Kind is one of the reference catalogs maintained by administrators.
type Kind string

const (
	KindArea         Kind = "area"
	KindSubDivision  Kind = "sub_division"
	KindPosition     Kind = "position"
	KindDocumentType Kind = "document_type"
)

// Kinds lists every catalog kind.
func Kinds() []Kind {
	return []Kind{KindArea, KindSubDivision, KindPosition, KindDocumentType}
}

// Verbs shared by the catalog events.
const (
	VerbCreated     = "created"
	VerbUpdated     = "updated"
	VerbDeleted     = "deleted"
	VerbActivated   = "activated"
	VerbDeactivated = "deactivated"
)

// CatalogName returns e.g. "position.updated" for (KindPosition, VerbUpdated).
func CatalogName(k Kind, verb string) Name { return Name(string(k) + "." + verb) }

// CatalogItem is a snapshot of an entry in one of the catalogs.
type CatalogItem struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Code      string `json:"code,omitempty"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

type CatalogCreatedEvent struct {
	Base
	Item CatalogItem `json:"item"`
}

func (e CatalogCreatedEvent) EventName() Name { return CatalogName(e.Item.Kind, VerbCreated) }

type CatalogUpdatedEvent struct {
	Base
	Item          CatalogItem `json:"item"`
	ChangedFields []string    `json:"changed_fields,omitempty"`
}

func (e CatalogUpdatedEvent) EventName() Name { return CatalogName(e.Item.Kind, VerbUpdated) }

type CatalogDeletedEvent struct {
	Base
	Kind   Kind   `json:"kind"`
	ItemID string `json:"item_id"`
	Name   string `json:"name,omitempty"`
}

func (e CatalogDeletedEvent) EventName() Name { return CatalogName(e.Kind, VerbDeleted) }

type CatalogActivatedEvent struct {
	Base
	Kind           Kind   `json:"kind"`
	ItemID         string `json:"item_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

func (e CatalogActivatedEvent) EventName() Name { return CatalogName(e.Kind, VerbActivated) }

type CatalogDeactivatedEvent struct {
	Base
	Kind           Kind   `json:"kind"`
	ItemID         string `json:"item_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

func (e CatalogDeactivatedEvent) EventName() Name { return CatalogName(e.Kind, VerbDeactivated) }
