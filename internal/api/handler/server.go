package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sembrant/chatdir/internal/api/response"
	"github.com/sembrant/chatdir/internal/directory/host"
)

// ServerHandler handles server-directory endpoints
type ServerHandler struct {
	servers *host.Service
}

// NewServerHandler creates a new server handler
func NewServerHandler(servers *host.Service) *ServerHandler {
	return &ServerHandler{servers: servers}
}

// Get handles GET /api/v1/servers/{id}
func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	srv, err := h.servers.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.ServerFromModel(srv))
}

// Top handles GET /api/v1/servers/top
func (h *ServerHandler) Top(w http.ResponseWriter, r *http.Request) {
	entries, err := h.servers.Top(r.Context(), queryN(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RankedList(entries, 0))
}
