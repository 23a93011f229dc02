package model

// Room is a point-in-time snapshot of a room's directory state.
type Room struct {
	Number     int64
	Title      string
	Owner      string
	ServerID   string
	Population int64
}

// RemoveUserResult reports what a member removal did beyond removing
// the member.
type RemoveUserResult struct {
	// RoomDestroyed is true when the removed member was the last one
	// and the room was torn down. When the member was removed but the
	// teardown failed, RoomDestroyed is false and the operation returns
	// a store-unavailable error alongside this result; Purge is the
	// recovery path.
	RoomDestroyed bool
	// NewOwner is set when the removed member owned the room and
	// ownership transferred to a remaining member.
	NewOwner string
}

// PurgeResult reports the outcome of a forced room teardown.
type PurgeResult struct {
	// Removed is the number of members successfully evicted.
	Removed int
	// Failed is the number of member evictions that errored and were
	// skipped over.
	Failed int
}
