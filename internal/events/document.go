package events

const (
	DocumentUploaded   Name = "document.uploaded"
	DocumentUpdated    Name = "document.updated"
	DocumentDeleted    Name = "document.deleted"
	DocumentDownloaded Name = "document.downloaded"
	DocumentViewed     Name = "document.viewed"
)

// Document describes a stored file. Contents never travel on the bus.
type Document struct {
	ID             string `json:"id"`
	CollaboratorID string `json:"collaborator_id,omitempty"`
	DocumentTypeID string `json:"document_type_id,omitempty"`
	FileName       string `json:"file_name"`
	MimeType       string `json:"mime_type,omitempty"`
	SizeBytes      int64  `json:"size_bytes,omitempty"`
	UploadedBy     string `json:"uploaded_by,omitempty"`
}

type DocumentUploadedEvent struct {
	Base
	Document Document `json:"document"`
}

func (DocumentUploadedEvent) EventName() Name { return DocumentUploaded }

type DocumentUpdatedEvent struct {
	Base
	Document      Document `json:"document"`
	ChangedFields []string `json:"changed_fields,omitempty"`
}

func (DocumentUpdatedEvent) EventName() Name { return DocumentUpdated }

type DocumentDeletedEvent struct {
	Base
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name,omitempty"`
}

func (DocumentDeletedEvent) EventName() Name { return DocumentDeleted }

type DocumentDownloadedEvent struct {
	Base
	Document Document `json:"document"`
}

func (DocumentDownloadedEvent) EventName() Name { return DocumentDownloaded }

type DocumentViewedEvent struct {
	Base
	DocumentID string `json:"document_id"`
}

func (DocumentViewedEvent) EventName() Name { return DocumentViewed }
