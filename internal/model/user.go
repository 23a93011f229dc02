package model

import "time"

// User is a point-in-time snapshot of a user's directory state,
// assembled from the attribute record and the message-count index.
type User struct {
	Name         string
	LoggedIn     bool
	Dummy        bool
	ConnectionID int64
	RoomNumber   int64
	Blocked      bool
	SuspendUntil time.Time
	MessageCount int64
}

// LoginResult reports the outcome of a successful login.
type LoginResult struct {
	// SessionReplaced is true when the user was already logged in and
	// this login overrode the existing session.
	SessionReplaced bool
	// PreviousConnectionID is the connection handle of the overridden
	// session, so the protocol layer can terminate it. Zero when no
	// session was replaced.
	PreviousConnectionID int64
}

// BlockState classifies the result of a suspension check.
type BlockState int

const (
	// BlockNone means no suspension is recorded.
	BlockNone BlockState = iota
	// BlockActive means a suspension is recorded and has not expired.
	BlockActive
	// BlockCleared means a suspension had expired and this check
	// cleared it as a side effect.
	BlockCleared
)

// BlockStatus is the result of a lazy suspension check.
type BlockStatus struct {
	State BlockState
	// Until is the suspension expiry. Set only while State is
	// BlockActive.
	Until time.Time
}

// Blocked reports whether the user is currently barred from acting.
func (s BlockStatus) Blocked() bool {
	return s.State == BlockActive
}
