package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sembrant/chatdir/internal/api/request"
	"github.com/sembrant/chatdir/internal/api/response"
	"github.com/sembrant/chatdir/internal/directory/user"
)

// UserHandler handles user-related endpoints
type UserHandler struct {
	users *user.Service
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *user.Service) *UserHandler {
	return &UserHandler{users: users}
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	if err := h.users.Create(r.Context(), req.Name, req.Password); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// Delete handles DELETE /api/v1/users/{name}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req request.DeleteUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.users.Delete(r.Context(), pathName(r), req.Password); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Get handles GET /api/v1/users/{name}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), pathName(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.UserFromModel(u))
}

// Login handles POST /api/v1/users/{name}/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	res, err := h.users.Login(r.Context(), pathName(r), req.Password, req.ConnectionID, req.Dummy)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.LoginFromModel(res))
}

// Logout handles POST /api/v1/users/{name}/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Logout(r.Context(), pathName(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// ChangeUsername handles PATCH /api/v1/users/{name}/username
func (h *UserHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	var req request.ChangeUsername
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.NewUsername == "" {
		WriteError(w, NewInvalidRequestError("new_username is required"))
		return
	}

	if err := h.users.ChangeUsername(r.Context(), pathName(r), req.Password, req.NewUsername); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"name": req.NewUsername})
}

// ChangePassword handles PATCH /api/v1/users/{name}/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req request.ChangePassword
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.NewPassword == "" {
		WriteError(w, NewInvalidRequestError("new_password is required"))
		return
	}

	if err := h.users.ChangePassword(r.Context(), pathName(r), req.Password, req.NewPassword); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// ChangeConnectionID handles PATCH /api/v1/users/{name}/connection
func (h *UserHandler) ChangeConnectionID(w http.ResponseWriter, r *http.Request) {
	var req request.ChangeConnectionID
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.users.ChangeConnectionID(r.Context(), pathName(r), req.Password, req.ConnectionID); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Block handles POST /api/v1/users/{name}/block
func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req request.Block
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Minutes <= 0 {
		WriteError(w, NewInvalidRequestError("minutes must be positive"))
		return
	}

	if err := h.users.Block(r.Context(), pathName(r), req.Minutes); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Unblock handles DELETE /api/v1/users/{name}/block
func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Unblock(r.Context(), pathName(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// BlockStatus handles GET /api/v1/users/{name}/block
func (h *UserHandler) BlockStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.users.CheckBlock(r.Context(), pathName(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.BlockStatusFromModel(status))
}

// AddMessages handles POST /api/v1/users/{name}/messages
func (h *UserHandler) AddMessages(w http.ResponseWriter, r *http.Request) {
	var req request.AddMessages
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	count, err := h.users.AddMessageCount(r.Context(), pathName(r), req.Delta)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MessageCount{Count: count})
}

// Top handles GET /api/v1/users/top
func (h *UserHandler) Top(w http.ResponseWriter, r *http.Request) {
	n := queryN(r)

	if r.URL.Query().Get("logged_in") == "true" {
		entries, err := h.users.TopLoggedIn(r.Context(), n)
		if err != nil {
			WriteError(w, err)
			return
		}
		// The intersect query composes scores with a +1 bias; strip it
		// so the wire carries true message counts.
		response.JSON(w, http.StatusOK, response.RankedList(entries, 1))
		return
	}

	entries, err := h.users.Top(r.Context(), n)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RankedList(entries, 0))
}

func pathName(r *http.Request) string {
	return mux.Vars(r)["name"]
}

func queryN(r *http.Request) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get("n"), 10, 64)
	if err != nil || n <= 0 {
		return 10
	}
	return n
}
