package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/infrastructure/auth"
)

// LoginInput carries one login attempt
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// UserInfo is the user view returned to authenticated clients
type UserInfo struct {
	ID             uuid.UUID   `json:"id"`
	Username       string      `json:"username"`
	DisplayName    string      `json:"display_name"`
	Email          string      `json:"email"`
	RoleIDs        []uuid.UUID `json:"role_ids"`
	Permissions    []string    `json:"permissions"`
	CanEditBills   bool        `json:"can_edit_bills"`
	CanDeleteBills bool        `json:"can_delete_bills"`
	LastLoginAt    *time.Time  `json:"last_login_at,omitempty"`
}

// LoginResult carries the issued tokens and the logged-in user
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserInfo  `json:"user"`
}

// RefreshTokenInput carries the refresh token to exchange
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult carries the fresh token pair
type RefreshTokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LogoutInput revokes the presented access token
type LogoutInput struct {
	Claims *auth.Claims
	IP     string
}

// ChangePasswordInput changes the caller's own password
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// CreateUserInput creates a new operator account
type CreateUserInput struct {
	Username       string
	Email          string
	Password       string
	DisplayName    string
	RoleIDs        []uuid.UUID
	CanEditBills   bool
	CanDeleteBills bool
	ActorID        uuid.UUID
	ActorName      string
	IP             string
}

// UpdateUserInput updates profile fields. Nil fields are untouched.
type UpdateUserInput struct {
	UserID      uuid.UUID
	Email       *string
	DisplayName *string
	ActorID     uuid.UUID
	ActorName   string
	IP          string
}

// SetUserRolesInput replaces a user's role assignments
type SetUserRolesInput struct {
	UserID    uuid.UUID
	RoleIDs   []uuid.UUID
	ActorID   uuid.UUID
	ActorName string
	IP        string
}

// SetBillPermissionsInput sets the per-user bill overrides
type SetBillPermissionsInput struct {
	UserID         uuid.UUID
	CanEditBills   bool
	CanDeleteBills bool
	ActorID        uuid.UUID
	ActorName      string
	IP             string
}

// ResetPasswordInput is an administrative password reset
type ResetPasswordInput struct {
	UserID      uuid.UUID
	NewPassword string
	ActorID     uuid.UUID
	ActorName   string
	IP          string
}

// DeleteUserInput removes an operator account
type DeleteUserInput struct {
	UserID    uuid.UUID
	ActorID   uuid.UUID
	ActorName string
	IP        string
}

// CreateRoleInput creates a custom role
type CreateRoleInput struct {
	Code            string
	Name            string
	Description     string
	PermissionCodes []string
	ActorID         uuid.UUID
	ActorName       string
	IP              string
}

// UpdateRoleInput updates a role. Nil fields are untouched.
type UpdateRoleInput struct {
	RoleID          uuid.UUID
	Name            *string
	Description     *string
	PermissionCodes *[]string
	ActorID         uuid.UUID
	ActorName       string
	IP              string
}

// userInfo builds the client view for a user with resolved permissions
func userInfo(user *identity.User, permissions []string) UserInfo {
	return UserInfo{
		ID:             user.ID,
		Username:       user.Username,
		DisplayName:    user.GetDisplayNameOrUsername(),
		Email:          user.Email,
		RoleIDs:        user.RoleIDs,
		Permissions:    permissions,
		CanEditBills:   user.CanEditBills,
		CanDeleteBills: user.CanDeleteBills,
		LastLoginAt:    user.LastLoginAt,
	}
}
