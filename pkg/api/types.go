package api

import "github.com/awgman/awgman/pkg/provision"

// CreateUserRequest is the POST /api/users payload.
type CreateUserRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

// UserPayload is the full user representation returned by create and get.
// ClientConfig carries the user's private key; list responses use
// provision.UserSummary instead.
type UserPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IP           string `json:"ip"`
	PublicKey    string `json:"public_key"`
	ClientConfig string `json:"client_config"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Success bool        `json:"success"`
	User    UserPayload `json:"user"`
}

// ListUsersResponse wraps the redacted listing.
type ListUsersResponse struct {
	Success bool                    `json:"success"`
	Users   []provision.UserSummary `json:"users"`
	Total   int                     `json:"total"`
}

// DeleteUserResponse acknowledges a deletion.
type DeleteUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusResponse wraps the advisory server status.
type StatusResponse struct {
	Success bool             `json:"success"`
	Status  provision.Status `json:"status"`
}
