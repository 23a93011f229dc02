package store

import "strconv"

// Persisted key namespace. The layout is fixed for compatibility with
// existing deployments; do not rename.
const (
	// UserPoolKey ranks users by message count.
	UserPoolKey = "UserPool"
	// LoginPoolKey holds logged-in human users.
	LoginPoolKey = "LoginPool"
	// DummyPoolKey holds logged-in test accounts.
	DummyPoolKey = "DummyPool"
	// LobbyPoolKey holds logged-in users not currently in a room.
	LobbyPoolKey = "LobbyPool"
	// RoomPoolKey ranks rooms by population.
	RoomPoolKey = "RoomPool"
	// ServerPoolKey ranks servers by hosted-room count.
	ServerPoolKey = "ServerPool"
)

// UserKey returns the attribute-record key for a user.
func UserKey(name string) string {
	return "User:" + name
}

// RoomKey returns the attribute-record key for a room.
func RoomKey(number int64) string {
	return "Room:" + strconv.FormatInt(number, 10)
}

// RoomContentsKey returns the member-set key for a room.
func RoomContentsKey(number int64) string {
	return RoomKey(number) + ":Contents"
}

// ServerKey returns the hosted-room-set key for a server.
func ServerKey(id string) string {
	return "Server:" + id
}
