package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sembrant/chatdir/internal/api/request"
	"github.com/sembrant/chatdir/internal/api/response"
	"github.com/sembrant/chatdir/internal/directory/room"
)

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	rooms *room.Service
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *room.Service) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoom
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Number == 0 {
		WriteError(w, NewInvalidRequestError("number is required and must not be 0 (the lobby)"))
		return
	}
	if req.Owner == "" {
		WriteError(w, NewInvalidRequestError("owner is required"))
		return
	}
	if req.ServerID == "" {
		WriteError(w, NewInvalidRequestError("server_id is required"))
		return
	}

	if err := h.rooms.Create(r.Context(), req.Number, req.Title, req.Owner, req.ServerID); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]int64{"number": req.Number})
}

// Get handles GET /api/v1/rooms/{number}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	rm, err := h.rooms.Get(r.Context(), number)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RoomFromModel(rm))
}

// Members handles GET /api/v1/rooms/{number}/members
func (h *RoomHandler) Members(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	members, err := h.rooms.Members(r.Context(), number)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string][]string{"members": members})
}

// AddMember handles POST /api/v1/rooms/{number}/members
func (h *RoomHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.AddMember
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}

	if err := h.rooms.AddUser(r.Context(), number, req.Username); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// RemoveMember handles DELETE /api/v1/rooms/{number}/members/{name}
func (h *RoomHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.rooms.RemoveUser(r.Context(), number, mux.Vars(r)["name"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RemoveMemberFromModel(res))
}

// Update handles PATCH /api/v1/rooms/{number}
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.UpdateRoom
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	switch {
	case req.Title != nil:
		err = h.rooms.SetTitle(r.Context(), number, *req.Title)
	case req.Owner != nil:
		err = h.rooms.SetOwner(r.Context(), number, *req.Owner)
	case req.ServerID != nil:
		err = h.rooms.SetServerID(r.Context(), number, *req.ServerID)
	default:
		WriteError(w, NewInvalidRequestError("one of title, owner, server_id is required"))
		return
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Purge handles DELETE /api/v1/rooms/{number}
func (h *RoomHandler) Purge(w http.ResponseWriter, r *http.Request) {
	number, err := pathNumber(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.rooms.Purge(r.Context(), number)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Purge{Removed: res.Removed, Failed: res.Failed})
}

// Top handles GET /api/v1/rooms/top
func (h *RoomHandler) Top(w http.ResponseWriter, r *http.Request) {
	entries, err := h.rooms.Top(r.Context(), queryN(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RankedList(entries, 0))
}

func pathNumber(r *http.Request) (int64, error) {
	number, err := strconv.ParseInt(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		return 0, NewInvalidRequestError("invalid room number")
	}
	return number, nil
}
