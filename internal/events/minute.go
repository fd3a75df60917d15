package events

const (
	MinuteCreated      Name = "minute.created"
	MinuteUpdated      Name = "minute.updated"
	MinuteDeleted      Name = "minute.deleted"
	MinuteFileUploaded Name = "minute.file_uploaded"
	MinuteDownloaded   Name = "minute.downloaded"
)

// Minute is a meeting record bundle.
type Minute struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MeetingDate string `json:"meeting_date,omitempty"`
	AreaID      string `json:"area_id,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// File describes the attachment of a minute.
type File struct {
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

type MinuteCreatedEvent struct {
	Base
	Minute Minute `json:"minute"`
}

func (MinuteCreatedEvent) EventName() Name { return MinuteCreated }

type MinuteUpdatedEvent struct {
	Base
	Minute        Minute   `json:"minute"`
	ChangedFields []string `json:"changed_fields,omitempty"`
}

func (MinuteUpdatedEvent) EventName() Name { return MinuteUpdated }

type MinuteDeletedEvent struct {
	Base
	MinuteID string `json:"minute_id"`
	Title    string `json:"title,omitempty"`
}

func (MinuteDeletedEvent) EventName() Name { return MinuteDeleted }

type MinuteFileUploadedEvent struct {
	Base
	MinuteID string `json:"minute_id"`
	File     File   `json:"file"`
}

func (MinuteFileUploadedEvent) EventName() Name { return MinuteFileUploaded }

type MinuteDownloadedEvent struct {
	Base
	MinuteID string `json:"minute_id"`
	File     File   `json:"file"`
}

func (MinuteDownloadedEvent) EventName() Name { return MinuteDownloaded }
