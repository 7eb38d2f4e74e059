package identity

import (
	"strings"
	"time"

	"github.com/medbill/backend/internal/domain/shared"
)

// Permission represents a functional permission (resource:action pattern)
// It is a value object
type Permission struct {
	Code        string // e.g., "bill:edit"
	Resource    string // e.g., "bill"
	Action      string // e.g., "edit"
	Description string
}

// Permissions the billing system knows about
var (
	PermBillView   = Permission{Code: "bill:view", Resource: "bill", Action: "view"}
	PermBillEdit   = Permission{Code: "bill:edit", Resource: "bill", Action: "edit"}
	PermBillDelete = Permission{Code: "bill:delete", Resource: "bill", Action: "delete"}
	PermBillExport = Permission{Code: "bill:export", Resource: "bill", Action: "export"}
	PermBillEmail  = Permission{Code: "bill:email", Resource: "bill", Action: "email"}
	PermUploadData = Permission{Code: "upload:create", Resource: "upload", Action: "create"}
	PermUserManage = Permission{Code: "user:manage", Resource: "user", Action: "manage"}
	PermRoleManage = Permission{Code: "role:manage", Resource: "role", Action: "manage"}
	PermAuditView  = Permission{Code: "audit:view", Resource: "audit", Action: "view"}
)

// AllPermissions lists every known permission
func AllPermissions() []Permission {
	return []Permission{
		PermBillView, PermBillEdit, PermBillDelete, PermBillExport, PermBillEmail,
		PermUploadData, PermUserManage, PermRoleManage, PermAuditView,
	}
}

// NewPermission creates a new Permission value object
func NewPermission(resource, action string) (*Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if resource == "" {
		return nil, shared.NewDomainError("INVALID_PERMISSION", "Permission resource cannot be empty")
	}
	if action == "" {
		return nil, shared.NewDomainError("INVALID_PERMISSION", "Permission action cannot be empty")
	}

	return &Permission{
		Code:     resource + ":" + action,
		Resource: resource,
		Action:   action,
	}, nil
}

// NewPermissionFromCode creates a Permission from a code string (e.g., "bill:edit")
func NewPermissionFromCode(code string) (*Permission, error) {
	parts := strings.SplitN(code, ":", 2)
	if len(parts) != 2 {
		return nil, shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code must be in format 'resource:action'")
	}
	return NewPermission(parts[0], parts[1])
}

// Equals checks if two permissions are equal
func (p Permission) Equals(other Permission) bool {
	return p.Code == other.Code
}

// IsEmpty returns true if the permission is empty
func (p Permission) IsEmpty() bool {
	return p.Code == ""
}

// Built-in role codes seeded at migration time
const (
	RoleCodeAdmin = "admin"
	RoleCodeStaff = "staff"
)

// Role represents a named set of permissions.
// It is an aggregate root.
type Role struct {
	shared.BaseAggregateRoot
	Code        string
	Name        string
	Description string
	Permissions []Permission
	IsSystem    bool // System roles cannot be deleted
}

// NewRole creates a new role
func NewRole(code, name string) (*Role, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot exceed 50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}

	return &Role{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Permissions:       make([]Permission, 0),
	}, nil
}

// NewSystemRole creates a built-in role that cannot be deleted
func NewSystemRole(code, name string, permissions []Permission) (*Role, error) {
	role, err := NewRole(code, name)
	if err != nil {
		return nil, err
	}
	role.IsSystem = true
	role.Permissions = append(role.Permissions, permissions...)
	return role, nil
}

// SetDescription sets the role description
func (r *Role) SetDescription(description string) {
	r.Description = description
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// Rename changes the role's display name
func (r *Role) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}

	r.Name = name
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// GrantPermission adds a permission to the role
func (r *Role) GrantPermission(perm Permission) error {
	if perm.IsEmpty() {
		return shared.NewDomainError("INVALID_PERMISSION", "Permission cannot be empty")
	}

	for _, p := range r.Permissions {
		if p.Equals(perm) {
			return shared.NewDomainError("PERMISSION_ALREADY_GRANTED", "Role already has this permission")
		}
	}

	r.Permissions = append(r.Permissions, perm)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// RevokePermission removes a permission from the role
func (r *Role) RevokePermission(perm Permission) error {
	found := false
	remaining := make([]Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p.Equals(perm) {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}

	if !found {
		return shared.NewDomainError("PERMISSION_NOT_GRANTED", "Role does not have this permission")
	}

	r.Permissions = remaining
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// SetPermissions replaces the role's permissions
func (r *Role) SetPermissions(perms []Permission) error {
	seen := make(map[string]bool)
	unique := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p.IsEmpty() {
			return shared.NewDomainError("INVALID_PERMISSION", "Permission cannot be empty")
		}
		if !seen[p.Code] {
			seen[p.Code] = true
			unique = append(unique, p)
		}
	}

	r.Permissions = unique
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// HasPermission checks if the role grants a permission code
func (r *Role) HasPermission(code string) bool {
	for _, p := range r.Permissions {
		if p.Code == code {
			return true
		}
	}
	return false
}

// PermissionCodes returns the permission codes granted by this role
func (r *Role) PermissionCodes() []string {
	codes := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		codes = append(codes, p.Code)
	}
	return codes
}

// DefaultAdminRole builds the seeded admin role with every permission
func DefaultAdminRole() (*Role, error) {
	return NewSystemRole(RoleCodeAdmin, "Administrator", AllPermissions())
}

// DefaultStaffRole builds the seeded staff role with day-to-day permissions
func DefaultStaffRole() (*Role, error) {
	return NewSystemRole(RoleCodeStaff, "Staff", []Permission{
		PermBillView, PermBillExport, PermBillEmail, PermUploadData,
	})
}
