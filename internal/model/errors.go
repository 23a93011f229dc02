package model

import "errors"

// Outcome sentinels shared across the directory engine. Callers match
// with errors.Is; the API layer maps them onto HTTP statuses.
var (
	// Not-found outcomes
	ErrUserNotFound   = errors.New("user not found")
	ErrRoomNotFound   = errors.New("room not found")
	ErrServerNotFound = errors.New("server not found")

	// ErrAuthFailed covers any username/password mismatch. It is never
	// refined further, so a caller cannot learn which half was wrong.
	ErrAuthFailed = errors.New("authentication failed")

	// Conflict outcomes
	ErrUserExists    = errors.New("username already taken")
	ErrRoomExists    = errors.New("room number already in use")
	ErrAlreadyMember = errors.New("user is already a member of the room")
	ErrNotMember     = errors.New("user is not a member of the room")
	ErrUnchanged     = errors.New("new value equals current value")

	// ErrSuspended blocks an action while a suspension is active.
	ErrSuspended = errors.New("user is suspended")

	// Distinct no-op outcomes
	ErrNotLoggedIn  = errors.New("user is not logged in")
	ErrNotSuspended = errors.New("user is not suspended")

	// ErrRankOutOfRange guards rank-at-position queries against the
	// current index cardinality.
	ErrRankOutOfRange = errors.New("rank out of range")

	// ErrStoreUnavailable wraps every transport-level store failure.
	// The whole operation is safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInconsistent reports an observed violation of an invariant the
	// engine relies on. It is never silently repaired.
	ErrInconsistent = errors.New("directory state inconsistent")
)
