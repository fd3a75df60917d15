package events

const (
	CollaboratorCreated     Name = "collaborator.created"
	CollaboratorUpdated     Name = "collaborator.updated"
	CollaboratorDeleted     Name = "collaborator.deleted"
	CollaboratorActivated   Name = "collaborator.activated"
	CollaboratorDeactivated Name = "collaborator.deactivated"
	CollaboratorViewed      Name = "collaborator.viewed"
)

// Collaborator is the personnel snapshot carried by collaborator events.
type Collaborator struct {
	ID             string `json:"id"`
	EmployeeNumber string `json:"employee_number"`
	FullName       string `json:"full_name"`
	Email          string `json:"email,omitempty"`
	AreaID         string `json:"area_id,omitempty"`
	PositionID     string `json:"position_id,omitempty"`
	Status         string `json:"status,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`
}

type CollaboratorCreatedEvent struct {
	Base
	Collaborator Collaborator `json:"collaborator"`
}

func (CollaboratorCreatedEvent) EventName() Name { return CollaboratorCreated }

type CollaboratorUpdatedEvent struct {
	Base
	Collaborator  Collaborator `json:"collaborator"`
	ChangedFields []string     `json:"changed_fields,omitempty"`
}

func (CollaboratorUpdatedEvent) EventName() Name { return CollaboratorUpdated }

type CollaboratorDeletedEvent struct {
	Base
	CollaboratorID string `json:"collaborator_id"`
	EmployeeNumber string `json:"employee_number,omitempty"`
}

func (CollaboratorDeletedEvent) EventName() Name { return CollaboratorDeleted }

type CollaboratorActivatedEvent struct {
	Base
	CollaboratorID string `json:"collaborator_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

func (CollaboratorActivatedEvent) EventName() Name { return CollaboratorActivated }

type CollaboratorDeactivatedEvent struct {
	Base
	CollaboratorID string `json:"collaborator_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

func (CollaboratorDeactivatedEvent) EventName() Name { return CollaboratorDeactivated }

type CollaboratorViewedEvent struct {
	Base
	CollaboratorID string `json:"collaborator_id"`
}

func (CollaboratorViewedEvent) EventName() Name { return CollaboratorViewed }
