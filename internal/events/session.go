package events

const (
	SessionStarted        Name = "session.started"
	SessionEnded          Name = "session.ended"
	SessionTokenRefreshed Name = "session.token_refreshed"
	SessionLoginFailed    Name = "session.login_failed"
)

// Session identifies an authenticated session and where it came from.
type Session struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

type SessionStartedEvent struct {
	Base
	Session Session `json:"session"`
}

func (SessionStartedEvent) EventName() Name { return SessionStarted }

type SessionEndedEvent struct {
	Base
	Session Session `json:"session"`
}

func (SessionEndedEvent) EventName() Name { return SessionEnded }

type SessionTokenRefreshedEvent struct {
	Base
	Session Session `json:"session"`
}

func (SessionTokenRefreshedEvent) EventName() Name { return SessionTokenRefreshed }

// SessionLoginFailedEvent is raised for rejected credentials. No user is
// attributable, so it is not part of the audit trail.
type SessionLoginFailedEvent struct {
	Base
	Username  string `json:"username,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (SessionLoginFailedEvent) EventName() Name { return SessionLoginFailed }
