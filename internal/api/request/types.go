// Package request defines the JSON request payloads of the directory
// API.
package request

// CreateUser is the payload for POST /users.
type CreateUser struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// DeleteUser is the payload for DELETE /users/{name}.
type DeleteUser struct {
	Password string `json:"password"`
}

// Login is the payload for POST /users/{name}/login.
type Login struct {
	Password     string `json:"password"`
	ConnectionID int64  `json:"connection_id"`
	Dummy        bool   `json:"dummy"`
}

// ChangeUsername is the payload for PATCH /users/{name}/username.
type ChangeUsername struct {
	Password    string `json:"password"`
	NewUsername string `json:"new_username"`
}

// ChangePassword is the payload for PATCH /users/{name}/password.
type ChangePassword struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// ChangeConnectionID is the payload for PATCH /users/{name}/connection.
type ChangeConnectionID struct {
	Password     string `json:"password"`
	ConnectionID int64  `json:"connection_id"`
}

// Block is the payload for POST /users/{name}/block.
type Block struct {
	Minutes int64 `json:"minutes"`
}

// AddMessages is the payload for POST /users/{name}/messages.
type AddMessages struct {
	Delta int64 `json:"delta"`
}

// CreateRoom is the payload for POST /rooms.
type CreateRoom struct {
	Number   int64  `json:"number"`
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	ServerID string `json:"server_id"`
}

// AddMember is the payload for POST /rooms/{number}/members.
type AddMember struct {
	Username string `json:"username"`
}

// UpdateRoom is the payload for PATCH /rooms/{number}. Exactly one
// field must be set.
type UpdateRoom struct {
	Title    *string `json:"title,omitempty"`
	Owner    *string `json:"owner,omitempty"`
	ServerID *string `json:"server_id,omitempty"`
}
