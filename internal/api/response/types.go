// Package response defines the JSON response payloads of the directory
// API. Everything is built from primitives so any transport can consume
// it without depending on the store's value representation.
package response

import (
	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/store"
)

// User represents a user snapshot in API responses
type User struct {
	Name         string `json:"name"`
	LoggedIn     bool   `json:"logged_in"`
	Dummy        bool   `json:"dummy,omitempty"`
	ConnectionID int64  `json:"connection_id"`
	RoomNumber   int64  `json:"room_number"`
	Blocked      bool   `json:"blocked"`
	SuspendUntil int64  `json:"suspend_until,omitempty"`
	MessageCount int64  `json:"message_count"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	resp := User{
		Name:         u.Name,
		LoggedIn:     u.LoggedIn,
		Dummy:        u.Dummy,
		ConnectionID: u.ConnectionID,
		RoomNumber:   u.RoomNumber,
		Blocked:      u.Blocked,
		MessageCount: u.MessageCount,
	}
	if !u.SuspendUntil.IsZero() {
		resp.SuspendUntil = u.SuspendUntil.Unix()
	}
	return resp
}

// Login is the response for a successful login
type Login struct {
	SessionReplaced      bool  `json:"session_replaced"`
	PreviousConnectionID int64 `json:"previous_connection_id,omitempty"`
}

// LoginFromModel converts a model.LoginResult
func LoginFromModel(r model.LoginResult) Login {
	return Login{
		SessionReplaced:      r.SessionReplaced,
		PreviousConnectionID: r.PreviousConnectionID,
	}
}

// BlockStatus is the response for a suspension check
type BlockStatus struct {
	// State is "none", "active", or "cleared" ("cleared" means this
	// check lazily lifted an expired suspension).
	State string `json:"state"`
	Until int64  `json:"until,omitempty"`
}

// BlockStatusFromModel converts a model.BlockStatus
func BlockStatusFromModel(s model.BlockStatus) BlockStatus {
	resp := BlockStatus{}
	switch s.State {
	case model.BlockActive:
		resp.State = "active"
		resp.Until = s.Until.Unix()
	case model.BlockCleared:
		resp.State = "cleared"
	default:
		resp.State = "none"
	}
	return resp
}

// MessageCount is the response after a message-count adjustment
type MessageCount struct {
	Count int64 `json:"count"`
}

// Room represents a room snapshot in API responses
type Room struct {
	Number     int64  `json:"number"`
	Title      string `json:"title"`
	Owner      string `json:"owner"`
	ServerID   string `json:"server_id"`
	Population int64  `json:"population"`
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room) Room {
	return Room{
		Number:     r.Number,
		Title:      r.Title,
		Owner:      r.Owner,
		ServerID:   r.ServerID,
		Population: r.Population,
	}
}

// RemoveMember is the response after a member removal
type RemoveMember struct {
	RoomDestroyed bool   `json:"room_destroyed"`
	NewOwner      string `json:"new_owner,omitempty"`
}

// RemoveMemberFromModel converts a model.RemoveUserResult
func RemoveMemberFromModel(r model.RemoveUserResult) RemoveMember {
	return RemoveMember{
		RoomDestroyed: r.RoomDestroyed,
		NewOwner:      r.NewOwner,
	}
}

// Purge is the response after a forced room teardown
type Purge struct {
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// Server represents a server snapshot in API responses
type Server struct {
	ID        string  `json:"id"`
	RoomCount int64   `json:"room_count"`
	Rooms     []int64 `json:"rooms"`
}

// ServerFromModel converts a model.Server
func ServerFromModel(s *model.Server) Server {
	return Server{
		ID:        s.ID,
		RoomCount: s.RoomCount,
		Rooms:     s.Rooms,
	}
}

// RankedEntry is one leaderboard row
type RankedEntry struct {
	Rank  int64  `json:"rank"`
	Key   string `json:"key"`
	Score int64  `json:"score"`
}

// RankedList converts store entries into leaderboard rows. bias is
// subtracted from every score; the intersect-filtered top query
// composes scores with a +1 bias that wire consumers should not see.
func RankedList(entries []store.Entry, bias int64) []RankedEntry {
	rows := make([]RankedEntry, len(entries))
	for i, e := range entries {
		rows[i] = RankedEntry{
			Rank:  int64(i) + 1,
			Key:   e.Member,
			Score: e.Score - bias,
		}
	}
	return rows
}
