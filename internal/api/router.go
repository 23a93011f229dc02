package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sembrant/chatdir/internal/api/handler"
	"github.com/sembrant/chatdir/internal/api/middleware"
	"github.com/sembrant/chatdir/internal/directory/host"
	"github.com/sembrant/chatdir/internal/directory/room"
	"github.com/sembrant/chatdir/internal/directory/user"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger  *slog.Logger
	Users   *user.Service
	Rooms   *room.Service
	Servers *host.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	userHandler := handler.NewUserHandler(cfg.Users)
	roomHandler := handler.NewRoomHandler(cfg.Rooms)
	serverHandler := handler.NewServerHandler(cfg.Servers)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// User routes. The literal "top" route is registered before the
	// {name} routes so mux does not treat it as a username.
	api.HandleFunc("/users/top", userHandler.Top).Methods(http.MethodGet)
	api.HandleFunc("/users", userHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/users/{name}", userHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{name}", userHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{name}/login", userHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/users/{name}/logout", userHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/users/{name}/username", userHandler.ChangeUsername).Methods(http.MethodPatch)
	api.HandleFunc("/users/{name}/password", userHandler.ChangePassword).Methods(http.MethodPatch)
	api.HandleFunc("/users/{name}/connection", userHandler.ChangeConnectionID).Methods(http.MethodPatch)
	api.HandleFunc("/users/{name}/block", userHandler.Block).Methods(http.MethodPost)
	api.HandleFunc("/users/{name}/block", userHandler.Unblock).Methods(http.MethodDelete)
	api.HandleFunc("/users/{name}/block", userHandler.BlockStatus).Methods(http.MethodGet)
	api.HandleFunc("/users/{name}/messages", userHandler.AddMessages).Methods(http.MethodPost)

	// Room routes
	api.HandleFunc("/rooms/top", roomHandler.Top).Methods(http.MethodGet)
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{number}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{number}", roomHandler.Update).Methods(http.MethodPatch)
	api.HandleFunc("/rooms/{number}", roomHandler.Purge).Methods(http.MethodDelete)
	api.HandleFunc("/rooms/{number}/members", roomHandler.Members).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{number}/members", roomHandler.AddMember).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{number}/members/{name}", roomHandler.RemoveMember).Methods(http.MethodDelete)

	// Server routes
	api.HandleFunc("/servers/top", serverHandler.Top).Methods(http.MethodGet)
	api.HandleFunc("/servers/{id}", serverHandler.Get).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
