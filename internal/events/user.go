package events

const (
	UserCreated         Name = "user.created"
	UserUpdated         Name = "user.updated"
	UserDeleted         Name = "user.deleted"
	UserActivated       Name = "user.activated"
	UserDeactivated     Name = "user.deactivated"
	UserPasswordChanged Name = "user.password_changed"
)

// User is the account snapshot carried by user events. It never includes
// credentials.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

type UserCreatedEvent struct {
	Base
	User User `json:"user"`
}

func (UserCreatedEvent) EventName() Name { return UserCreated }

type UserUpdatedEvent struct {
	Base
	User          User     `json:"user"`
	ChangedFields []string `json:"changed_fields,omitempty"`
}

func (UserUpdatedEvent) EventName() Name { return UserUpdated }

type UserDeletedEvent struct {
	Base
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

func (UserDeletedEvent) EventName() Name { return UserDeleted }

type UserActivatedEvent struct {
	Base
	UserID         string `json:"user_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

func (UserActivatedEvent) EventName() Name { return UserActivated }

type UserDeactivatedEvent struct {
	Base
	UserID         string `json:"user_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

func (UserDeactivatedEvent) EventName() Name { return UserDeactivated }

type UserPasswordChangedEvent struct {
	Base
	UserID string `json:"user_id"`
}

func (UserPasswordChangedEvent) EventName() Name { return UserPasswordChanged }
