package session

import (
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

// State is the lifecycle position of the session.
type State int

const (
	StateUninitialized State = iota
	StateRestoring
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type EventKind string

const (
	EventLogin         EventKind = "login"
	EventLogout        EventKind = "logout"
	EventExpired       EventKind = "expired"
	EventRefreshed     EventKind = "refreshed"
	EventRefreshFailed EventKind = "refresh_failed"
)

// Event is published to subscribers after each session transition.
type Event struct {
	Kind EventKind
	User *domain.User
	Err  error
	Time time.Time
}

// Snapshot is a read-only view of the session. Token is never serialized.
type Snapshot struct {
	State           State        `json:"state"`
	Token           string       `json:"-"`
	User            *domain.User `json:"user,omitempty"`
	IsAuthenticated bool         `json:"is_authenticated"`
	Loading         bool         `json:"loading"`
	LastActivity    time.Time    `json:"last_activity,omitzero"`
	Listening       bool         `json:"listening"`
}
