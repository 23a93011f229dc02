package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sembrant/chatdir/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeServerNotFound   = "SERVER_NOT_FOUND"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeUserExists       = "USER_EXISTS"
	CodeRoomExists       = "ROOM_EXISTS"
	CodeAlreadyMember    = "ALREADY_MEMBER"
	CodeNotMember        = "NOT_MEMBER"
	CodeUnchanged        = "UNCHANGED"
	CodeSuspended        = "SUSPENDED"
	CodeNotLoggedIn      = "NOT_LOGGED_IN"
	CodeNotSuspended     = "NOT_SUSPENDED"
	CodeRankOutOfRange   = "RANK_OUT_OF_RANGE"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInconsistent     = "INCONSISTENT_STATE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrServerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeServerNotFound, "Server not found"}}
	case errors.Is(err, model.ErrAuthFailed):
		return &httpError{http.StatusUnauthorized, APIError{CodeAuthFailed, "Invalid username or password"}}
	case errors.Is(err, model.ErrUserExists):
		return &httpError{http.StatusConflict, APIError{CodeUserExists, "Username already taken"}}
	case errors.Is(err, model.ErrRoomExists):
		return &httpError{http.StatusConflict, APIError{CodeRoomExists, "Room number already in use"}}
	case errors.Is(err, model.ErrAlreadyMember):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyMember, "User is already a member"}}
	case errors.Is(err, model.ErrNotMember):
		return &httpError{http.StatusConflict, APIError{CodeNotMember, "User is not a member"}}
	case errors.Is(err, model.ErrUnchanged):
		return &httpError{http.StatusConflict, APIError{CodeUnchanged, "New value equals current value"}}
	case errors.Is(err, model.ErrSuspended):
		return &httpError{http.StatusForbidden, APIError{CodeSuspended, "User is suspended"}}
	case errors.Is(err, model.ErrNotLoggedIn):
		return &httpError{http.StatusConflict, APIError{CodeNotLoggedIn, "User is not logged in"}}
	case errors.Is(err, model.ErrNotSuspended):
		return &httpError{http.StatusConflict, APIError{CodeNotSuspended, "User is not suspended"}}
	case errors.Is(err, model.ErrRankOutOfRange):
		return &httpError{http.StatusBadRequest, APIError{CodeRankOutOfRange, "Rank out of range"}}
	case errors.Is(err, model.ErrStoreUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Store unavailable, retry the operation"}}
	case errors.Is(err, model.ErrInconsistent):
		return &httpError{http.StatusInternalServerError, APIError{CodeInconsistent, "Directory state inconsistent"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
