package identity

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/medbill/backend/internal/domain/audit"
	"github.com/medbill/backend/internal/domain/identity"
	"github.com/medbill/backend/internal/domain/shared"
)

// fakeUserRepo is an in-memory UserRepository
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*identity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*identity.User)}
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	username = strings.ToLower(username)
	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, user := range r.users {
		if user.Email != "" && user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeUserRepo) FindAll(_ context.Context, filter identity.UserFilter) ([]identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []identity.User
	for _, user := range r.users {
		if filter.Status != nil && user.Status != *filter.Status {
			continue
		}
		if filter.RoleID != nil && !user.HasRole(*filter.RoleID) {
			continue
		}
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, filter identity.UserFilter) (int64, error) {
	users, err := r.FindAll(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(users)), nil
}

func (r *fakeUserRepo) Save(_ context.Context, user *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeRoleRepo is an in-memory RoleRepository
type fakeRoleRepo struct {
	mu    sync.Mutex
	roles map[uuid.UUID]*identity.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: make(map[uuid.UUID]*identity.Role)}
}

func (r *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *role
	return &clone, nil
}

func (r *fakeRoleRepo) FindByCode(_ context.Context, code string) (*identity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code = strings.ToLower(code)
	for _, role := range r.roles {
		if role.Code == code {
			clone := *role
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeRoleRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]identity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []identity.Role
	for _, id := range ids {
		if role, ok := r.roles[id]; ok {
			out = append(out, *role)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) FindAll(_ context.Context, _ shared.Filter) ([]identity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []identity.Role
	for _, role := range r.roles {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *fakeRoleRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	roles, err := r.FindAll(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(roles)), nil
}

func (r *fakeRoleRepo) Save(_ context.Context, role *identity.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *role
	r.roles[role.ID] = &clone
	return nil
}

func (r *fakeRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

// fakeAuditRepo records trail entries for assertions
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Save(_ context.Context, entry *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) FindAll(_ context.Context, _ audit.Filter) ([]audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Entry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

func (r *fakeAuditRepo) Count(_ context.Context, _ audit.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}
