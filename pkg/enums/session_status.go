package enums

// SessionStatus tracks the lifecycle of a checkout session. Processing
// means payment captured and fan-out in flight; the session only fails when
// payment capture itself fails.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

func (s SessionStatus) String() string { return string(s) }

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusPending, SessionStatusProcessing, SessionStatusCompleted, SessionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the session can no longer transition.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}
