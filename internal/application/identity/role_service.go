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
)

// RoleService handles role management
type RoleService struct {
	roleRepo identity.RoleRepository
	userRepo identity.UserRepository
	recorder *auditapp.Recorder
	logger   *zap.Logger
}

// NewRoleService creates a role management service
func NewRoleService(
	roleRepo identity.RoleRepository,
	userRepo identity.UserRepository,
	recorder *auditapp.Recorder,
	logger *zap.Logger,
) *RoleService {
	return &RoleService{
		roleRepo: roleRepo,
		userRepo: userRepo,
		recorder: recorder,
		logger:   logger,
	}
}

// Create creates a custom role from permission codes
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*identity.Role, error) {
	if existing, _ := s.roleRepo.FindByCode(ctx, input.Code); existing != nil {
		return nil, shared.NewDomainError("ROLE_CODE_TAKEN", "Role code is already in use")
	}

	role, err := identity.NewRole(input.Code, input.Name)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		role.SetDescription(input.Description)
	}

	perms, err := parsePermissionCodes(input.PermissionCodes)
	if err != nil {
		return nil, err
	}
	if err := role.SetPermissions(perms); err != nil {
		return nil, err
	}

	if err := s.roleRepo.Save(ctx, role); err != nil {
		s.logger.Error("Failed to create role", zap.String("code", input.Code), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create role")
	}

	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.ActorID,
		Username: input.ActorName,
		Action:   audit.ActionUserUpdated,
		Details:  fmt.Sprintf("Created role %s", role.Code),
		IP:       input.IP,
	})

	s.logger.Info("Role created",
		zap.String("code", role.Code),
		zap.String("role_id", role.ID.String()))

	return role, nil
}

// Update updates a role's name, description or permission set.
// System roles keep their name and code.
func (s *RoleService) Update(ctx context.Context, input UpdateRoleInput) (*identity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, input.RoleID)
	if err != nil {
		return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
	}

	if input.Name != nil {
		if role.IsSystem {
			return nil, shared.NewDomainError("SYSTEM_ROLE_PROTECTED", "System roles cannot be renamed")
		}
		if err := role.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		role.SetDescription(*input.Description)
	}
	if input.PermissionCodes != nil {
		perms, err := parsePermissionCodes(*input.PermissionCodes)
		if err != nil {
			return nil, err
		}
		if err := role.SetPermissions(perms); err != nil {
			return nil, err
		}
	}

	if err := s.roleRepo.Save(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.String("role_id", role.ID.String()), zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}

	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   input.ActorID,
		Username: input.ActorName,
		Action:   audit.ActionUserUpdated,
		Details:  fmt.Sprintf("Updated role %s", role.Code),
		IP:       input.IP,
	})

	return role, nil
}

// Delete removes a role. System roles and roles still assigned to
// users refuse deletion.
func (s *RoleService) Delete(ctx context.Context, roleID, actorID uuid.UUID, actorName, ip string) error {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
	}
	if role.IsSystem {
		return shared.NewDomainError("SYSTEM_ROLE_PROTECTED", "System roles cannot be deleted")
	}

	assigned, err := s.userRepo.Count(ctx, identity.UserFilter{RoleID: &roleID})
	if err != nil {
		s.logger.Error("Failed to count role assignments", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete role")
	}
	if assigned > 0 {
		return shared.NewDomainError("ROLE_IN_USE",
			fmt.Sprintf("Role is assigned to %d users", assigned))
	}

	if err := s.roleRepo.Delete(ctx, roleID); err != nil {
		s.logger.Error("Failed to delete role", zap.String("role_id", roleID.String()), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete role")
	}

	s.recorder.Record(ctx, auditapp.RecordInput{
		UserID:   actorID,
		Username: actorName,
		Action:   audit.ActionUserUpdated,
		Details:  fmt.Sprintf("Deleted role %s", role.Code),
		IP:       ip,
	})

	s.logger.Info("Role deleted", zap.String("code", role.Code))
	return nil
}

// Get returns one role
func (s *RoleService) Get(ctx context.Context, roleID uuid.UUID) (*identity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
	}
	return role, nil
}

// List returns roles matching the filter
func (s *RoleService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[identity.Role], error) {
	roles, err := s.roleRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list roles")
	}
	total, err := s.roleRepo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to count roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list roles")
	}

	result := shared.NewPaginated(roles, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Permissions lists every permission the system knows about
func (s *RoleService) Permissions() []identity.Permission {
	return identity.AllPermissions()
}

func parsePermissionCodes(codes []string) ([]identity.Permission, error) {
	perms := make([]identity.Permission, 0, len(codes))
	for _, code := range codes {
		perm, err := identity.NewPermissionFromCode(code)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *perm)
	}
	return perms, nil
}
