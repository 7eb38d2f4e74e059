package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupIdentityTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.UserModel{}, &models.RoleModel{}, &models.UserRoleModel{}))
	return db
}

func makeTestUser(t *testing.T, username, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, email, "passw0rd123")
	require.NoError(t, err)
	return user
}

func TestGormUserRepositorySaveAndFind(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	roleID := uuid.New()
	user := makeTestUser(t, "accounts", "accounts@lab.example")
	require.NoError(t, user.SetRoles([]uuid.UUID{roleID}))

	require.NoError(t, repo.Save(ctx, user))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "accounts", found.Username)
	assert.Equal(t, []uuid.UUID{roleID}, found.RoleIDs)

	byName, err := repo.FindByUsername(ctx, "ACCOUNTS")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "Accounts@lab.example")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestGormUserRepositoryNotFound(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByEmail(ctx, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormUserRepositoryRoleReplacement(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := makeTestUser(t, "accounts", "accounts@lab.example")
	require.NoError(t, user.SetRoles([]uuid.UUID{uuid.New(), uuid.New()}))
	require.NoError(t, repo.Save(ctx, user))

	replacement := uuid.New()
	require.NoError(t, user.SetRoles([]uuid.UUID{replacement}))
	require.NoError(t, repo.Save(ctx, user))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{replacement}, found.RoleIDs)
}

func TestGormUserRepositoryFindAllAndCount(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	alice := makeTestUser(t, "alice", "alice@lab.example")
	bob := makeTestUser(t, "bob", "bob@lab.example")
	require.NoError(t, bob.Deactivate())

	require.NoError(t, repo.Save(ctx, alice))
	require.NoError(t, repo.Save(ctx, bob))

	all, err := repo.FindAll(ctx, identity.UserFilter{Filter: shared.DefaultFilter()})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active := identity.UserStatusActive
	got, err := repo.FindAll(ctx, identity.UserFilter{Filter: shared.DefaultFilter(), Status: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)

	filter := shared.DefaultFilter()
	filter.Search = "bob"
	count, err := repo.Count(ctx, identity.UserFilter{Filter: filter})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGormUserRepositoryDelete(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user := makeTestUser(t, "accounts", "accounts@lab.example")
	require.NoError(t, user.SetRoles([]uuid.UUID{uuid.New()}))
	require.NoError(t, repo.Save(ctx, user))

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err := repo.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Role assignments are gone too
	var count int64
	require.NoError(t, db.Model(&models.UserRoleModel{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	assert.ErrorIs(t, repo.Delete(ctx, user.ID), shared.ErrNotFound)
}

func TestGormRoleRepositorySaveAndFind(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewGormRoleRepository(db)
	ctx := context.Background()

	role, err := identity.DefaultStaffRole()
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, role))

	found, err := repo.FindByCode(ctx, "staff")
	require.NoError(t, err)
	assert.Equal(t, role.ID, found.ID)
	assert.True(t, found.HasPermission(identity.PermBillView.Code))
	assert.False(t, found.HasPermission(identity.PermBillDelete.Code))

	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{role.ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, "staff", byIDs[0].Code)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormRoleRepositoryDeleteSystemRole(t *testing.T) {
	db := setupIdentityTestDB(t)
	repo := NewGormRoleRepository(db)
	ctx := context.Background()

	admin, err := identity.DefaultAdminRole()
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, admin))

	err = repo.Delete(ctx, admin.ID)
	require.Error(t, err)

	custom, err := identity.NewRole("auditor", "Auditor")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, custom))
	require.NoError(t, repo.Delete(ctx, custom.ID))

	_, err = repo.FindByID(ctx, custom.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
