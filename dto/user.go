package dto

import (
	"time"

	"github.com/medhist/annotation-iam/identity"
	"github.com/medhist/annotation-iam/models"
)

// UserResponse represents a user in API responses. It never carries the
// password hash.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Fullname  string    `json:"fullname"`
	Roles     []string  `json:"roles"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromUser converts a models.User to UserResponse.
func FromUser(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Fullname:  u.Fullname,
		Roles:     u.RoleNames(),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// FromUsers converts a slice of models.User to a slice of UserResponse.
func FromUsers(users []models.User) []UserResponse {
	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = FromUser(&users[i])
	}
	return responses
}

// AuthResponse is returned by login and refresh.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
}

// ProfileResponse is the resolved identity of the caller.
type ProfileResponse struct {
	User        UserResponse `json:"user"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
}

// FromIdentity builds a profile from the stored user and the identity
// resolved for this request.
func FromIdentity(u *models.User, id *identity.Identity) ProfileResponse {
	return ProfileResponse{
		User:        FromUser(u),
		Roles:       id.Roles,
		Permissions: id.Permissions,
	}
}
