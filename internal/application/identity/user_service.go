package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditapp "github.com/medbill/backend/internal/application/audit"
	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/auth"
)

// UserService handles operator account management
type UserService struct {
	userRepo   identity.UserRepository
	roleRepo   identity.RoleRepository
	blacklist  auth.TokenBlacklist
	jwtService *auth.JWTService
	recorder   *auditapp.Recorder
	logger     *zap.Logger
}

// NewUserService creates a user management service
func NewUserService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	blacklist auth.TokenBlacklist,
	jwtService *auth.JWTService,
	recorder *auditapp.Recorder,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		blacklist:  blacklist,
		jwtService: jwtService,
		recorder:   recorder,
		logger:     logger,
	}
}

// Create creates an operator account with its role assignments
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*identity.User, error) {
	if existing, _ := s.userRepo.FindByUsername(ctx, input.Username); existing != nil {
		return nil, shared.NewDomainError("USERNAME_TAKEN", "Username is already in use")
	}
	if input.Email != "" {
		if existing, _ := s.userRepo.FindByEmail(ctx, input.Email); existing != nil {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "Email is already in use")
		}
	}

	user, err := identity.NewUser(input.Username, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != "" {
		if err := user.SetDisplayName(input.DisplayName); err != nil {
			return nil, err
		}
	}

	if len(input.RoleIDs) > 0 {
		if err := s.verifyRolesExist(ctx, input.RoleIDs); err != nil {
			return nil, err
		}
		if err := user.SetRoles(input.RoleIDs); err != nil {
			return nil, err
		}
	}

	user.SetBillPermissions(input.CanEditBills, input.CanDeleteBills)

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.String("username", input.Username), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create user")
	}

	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.ActorID,
		Username: input.ActorName,
		Action:   audit.ActionUserCreated,
		Details:  fmt.Sprintf("Created user %s", user.Username),
		IP:       input.IP,
	})

	s.logger.Info("User created",
		zap.String("username", user.Username),
		zap.String("user_id", user.ID.String()))

	return user, nil
}

// Update updates profile fields on an account
func (s *UserService) Update(ctx context.Context, input UpdateUserInput) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if input.Email != nil {
		if *input.Email != "" && *input.Email != user.Email {
			if existing, _ := s.userRepo.FindByEmail(ctx, *input.Email); existing != nil && existing.ID != user.ID {
				return nil, shared.NewDomainError("EMAIL_TAKEN", "Email is already in use")
			}
		}
		if err := user.SetEmail(*input.Email); err != nil {
			return nil, err
		}
	}
	if input.DisplayName != nil {
		if err := user.SetDisplayName(*input.DisplayName); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.recordUserUpdate(ctx, input.ActorID, input.ActorName, input.IP,
		fmt.Sprintf("Updated profile of %s", user.Username))

	return user, nil
}

// SetRoles replaces a user's role assignments
func (s *UserService) SetRoles(ctx context.Context, input SetUserRolesInput) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if len(input.RoleIDs) > 0 {
		if err := s.verifyRolesExist(ctx, input.RoleIDs); err != nil {
			return nil, err
		}
	}
	if err := user.SetRoles(input.RoleIDs); err != nil {
		return nil, err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to set user roles", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user roles")
	}

	s.recordUserUpdate(ctx, input.ActorID, input.ActorName, input.IP,
		fmt.Sprintf("Set %d roles on %s", len(input.RoleIDs), user.Username))

	return user, nil
}

// SetBillPermissions sets the per-user bill edit/delete overrides
func (s *UserService) SetBillPermissions(ctx context.Context, input SetBillPermissionsInput) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	user.SetBillPermissions(input.CanEditBills, input.CanDeleteBills)

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to set bill permissions", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user permissions")
	}

	s.recordUserUpdate(ctx, input.ActorID, input.ActorName, input.IP,
		fmt.Sprintf("Set bill permissions on %s (edit=%t delete=%t)",
			user.Username, input.CanEditBills, input.CanDeleteBills))

	return user, nil
}

// ResetPassword performs an administrative password reset and revokes
// the user's existing sessions
func (s *UserService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := user.SetPassword(input.NewPassword); err != nil {
		return err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to reset password", zap.String("user_id", user.ID.String()), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to reset password")
	}

	if err := s.blacklist.RevokeAllForUser(ctx, user.ID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke sessions after password reset", zap.Error(err))
	}

	s.recordUserUpdate(ctx, input.ActorID, input.ActorName, input.IP,
		fmt.Sprintf("Reset password of %s", user.Username))

	return nil
}

// Activate re-enables a deactivated or locked account
func (s *UserService) Activate(ctx context.Context, userID, actorID uuid.UUID, actorName, ip string) (*identity.User, error) {
	return s.transition(ctx, userID, actorID, actorName, ip, "Activated",
		func(u *identity.User) error { return u.Activate() })
}

// Deactivate disables an account and revokes its sessions
func (s *UserService) Deactivate(ctx context.Context, userID, actorID uuid.UUID, actorName, ip string) (*identity.User, error) {
	if userID == actorID {
		return nil, shared.NewDomainError("CANNOT_DEACTIVATE_SELF", "You cannot deactivate your own account")
	}

	user, err := s.transition(ctx, userID, actorID, actorName, ip, "Deactivated",
		func(u *identity.User) error { return u.Deactivate() })
	if err != nil {
		return nil, err
	}

	if err := s.blacklist.RevokeAllForUser(ctx, user.ID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke sessions on deactivation", zap.Error(err))
	}

	return user, nil
}

// Unlock clears a lockout before it expires
func (s *UserService) Unlock(ctx context.Context, userID, actorID uuid.UUID, actorName, ip string) (*identity.User, error) {
	return s.transition(ctx, userID, actorID, actorName, ip, "Unlocked",
		func(u *identity.User) error { return u.Unlock() })
}

// Delete removes an operator account
func (s *UserService) Delete(ctx context.Context, input DeleteUserInput) error {
	if input.UserID == input.ActorID {
		return shared.NewDomainError("CANNOT_DELETE_SELF", "You cannot delete your own account")
	}

	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		s.logger.Error("Failed to delete user", zap.String("user_id", user.ID.String()), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete user")
	}

	if err := s.blacklist.RevokeAllForUser(ctx, user.ID.String(), s.jwtService.GetRefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke sessions on deletion", zap.Error(err))
	}

	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.ActorID,
		Username: input.ActorName,
		Action:   audit.ActionUserDeleted,
		Details:  fmt.Sprintf("Deleted user %s", user.Username),
		IP:       input.IP,
	})

	s.logger.Info("User deleted",
		zap.String("username", user.Username),
		zap.String("user_id", user.ID.String()))

	return nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	return user, nil
}

// List returns users matching the filter
func (s *UserService) List(ctx context.Context, filter identity.UserFilter) (*shared.Paginated[identity.User], error) {
	users, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}
	total, err := s.userRepo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}

	result := shared.NewPaginated(users, total, filter.Page, filter.PageSize)
	return &result, nil
}

func (s *UserService) transition(
	ctx context.Context,
	userID, actorID uuid.UUID,
	actorName, ip, verb string,
	mutate func(*identity.User) error,
) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := mutate(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to save user", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.recordUserUpdate(ctx, actorID, actorName, ip, fmt.Sprintf("%s user %s", verb, user.Username))
	return user, nil
}

func (s *UserService) verifyRolesExist(ctx context.Context, roleIDs []uuid.UUID) error {
	roles, err := s.roleRepo.FindByIDs(ctx, roleIDs)
	if err != nil {
		s.logger.Error("Failed to look up roles", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to look up roles")
	}
	if len(roles) != len(dedupe(roleIDs)) {
		return shared.NewDomainError("ROLE_NOT_FOUND", "One or more roles do not exist")
	}
	return nil
}

func (s *UserService) recordUserUpdate(ctx context.Context, actorID uuid.UUID, actorName, ip, details string) {
	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   actorID,
		Username: actorName,
		Action:   audit.ActionUserUpdated,
		Details:  details,
		IP:       ip,
	})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
