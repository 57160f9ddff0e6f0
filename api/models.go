package api

// LoginResponse is returned from POST /session.
type LoginResponse struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
}

// CreateUserRequest is the JSON body for POST /user.
type CreateUserRequest struct {
	Identity    string `json:"identity"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// UpdateUserRequest is the JSON body for PATCH /user. Empty fields are left
// unchanged.
type UpdateUserRequest struct {
	Identity    string `json:"identity,omitempty"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserResponse describes a user account. The password hash never leaves the
// server.
type UserResponse struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
