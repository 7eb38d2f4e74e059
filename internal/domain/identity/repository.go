package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/medbill/backend/internal/domain/shared"
)

// UserFilter defines filtering options for user queries
type UserFilter struct {
	shared.Filter
	Status *UserStatus
	RoleID *uuid.UUID
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindAll finds users matching the filter
	FindAll(ctx context.Context, filter UserFilter) ([]User, error)

	// Count counts users matching the filter
	Count(ctx context.Context, filter UserFilter) (int64, error)

	// Save creates or updates a user, including role assignments
	Save(ctx context.Context, user *User) error

	// Delete removes a user
	Delete(ctx context.Context, id uuid.UUID) error
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	// FindByID finds a role by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Role, error)

	// FindByCode finds a role by its code
	FindByCode(ctx context.Context, code string) (*Role, error)

	// FindByIDs finds roles by a set of IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Role, error)

	// FindAll lists all roles
	FindAll(ctx context.Context, filter shared.Filter) ([]Role, error)

	// Count counts roles
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates a role
	Save(ctx context.Context, role *Role) error

	// Delete removes a role (system roles refuse)
	Delete(ctx context.Context, id uuid.UUID) error
}
