package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPermissionFromCode(t *testing.T) {
	perm, err := NewPermissionFromCode("bill:edit")
	require.NoError(t, err)
	assert.Equal(t, "bill", perm.Resource)
	assert.Equal(t, "edit", perm.Action)
	assert.Equal(t, "bill:edit", perm.Code)

	_, err = NewPermissionFromCode("nodelimiter")
	assert.Error(t, err)

	_, err = NewPermissionFromCode(":edit")
	assert.Error(t, err)
}

func TestRolePermissions(t *testing.T) {
	role, err := NewRole("accounts", "Accounts Team")
	require.NoError(t, err)

	require.NoError(t, role.GrantPermission(PermBillView))
	require.NoError(t, role.GrantPermission(PermBillExport))
	assert.True(t, role.HasPermission("bill:view"))
	assert.False(t, role.HasPermission("bill:delete"))

	err = role.GrantPermission(PermBillView)
	assert.Error(t, err, "duplicate grant rejected")

	require.NoError(t, role.RevokePermission(PermBillView))
	assert.False(t, role.HasPermission("bill:view"))

	err = role.RevokePermission(PermBillView)
	assert.Error(t, err)
}

func TestSetPermissionsDeduplicates(t *testing.T) {
	role, err := NewRole("accounts", "Accounts Team")
	require.NoError(t, err)

	require.NoError(t, role.SetPermissions([]Permission{PermBillView, PermBillView, PermBillEdit}))
	assert.Len(t, role.Permissions, 2)
	assert.ElementsMatch(t, []string{"bill:view", "bill:edit"}, role.PermissionCodes())
}

func TestNewRoleValidation(t *testing.T) {
	_, err := NewRole("", "Name")
	assert.Error(t, err)

	_, err = NewRole("code", "")
	assert.Error(t, err)
}

func TestDefaultRoles(t *testing.T) {
	admin, err := DefaultAdminRole()
	require.NoError(t, err)
	assert.True(t, admin.IsSystem)
	assert.Equal(t, RoleCodeAdmin, admin.Code)
	for _, p := range AllPermissions() {
		assert.True(t, admin.HasPermission(p.Code), "admin missing %s", p.Code)
	}

	staff, err := DefaultStaffRole()
	require.NoError(t, err)
	assert.True(t, staff.HasPermission("bill:view"))
	assert.True(t, staff.HasPermission("upload:create"))
	assert.False(t, staff.HasPermission("bill:delete"))
	assert.False(t, staff.HasPermission("user:manage"))
}
