package role_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/role"
	cachesvc "github.com/trezcool/dojo/services/cache"
	logsvc "github.com/trezcool/dojo/services/logger"
	inmemdb "github.com/trezcool/dojo/storage/database/inmem"
)

func newService(t *testing.T) (*role.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.Open()
	svc := role.NewService(
		inmemdb.NewRoleRepository(db),
		cachesvc.NewMemoryCache(),
		core.Conf,
		logsvc.NewRollbarLogger(zap.NewNop(), nil),
	)
	require.NoError(t, svc.Bootstrap(context.Background()))
	return svc, db
}

func privilegeID(t *testing.T, svc *role.Service, name string) string {
	t.Helper()
	privs, err := svc.Privileges(context.Background(), name)
	require.NoError(t, err)
	for _, p := range privs {
		if p.Name == name {
			return p.ID
		}
	}
	t.Fatalf("privilege %q not found", name)
	return ""
}

func TestService_Bootstrap(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	catalog, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, access.CatalogNames(), access.Names(catalog))

	tests := []struct {
		name  string
		privs []string
	}{
		{name: role.Administrator, privs: access.CatalogNames()},
		{name: role.Instructor, privs: access.InstructorPrivileges},
		{name: role.Student, privs: access.StudentPrivileges},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := svc.GetByName(ctx, tt.name)
			require.NoError(t, err)
			privs, err := svc.RolePrivileges(ctx, r.ID)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.privs, access.Names(privs))
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, svc.Bootstrap(ctx))
		roles, count, err := svc.Query(ctx, role.QueryFilter{}, core.Pagination{Page: 1, PageSize: 10}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Len(t, roles, 3)
	})
}

func TestService_UserPrivileges_invalidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	coach, err := svc.Create(ctx, role.NewRole{Name: "Coach"})
	require.NoError(t, err)
	require.NoError(t, svc.SetUserRoles(ctx, "u1", []string{coach.ID}))

	privs, err := svc.UserPrivileges(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, privs)

	// the cached empty set must not survive a grant
	res, err := svc.TogglePrivileges(ctx, coach.ID, role.TogglePrivileges{
		Grant: []string{privilegeID(t, svc, access.ListUsers)},
	})
	require.NoError(t, err)
	assert.True(t, res.AllOK())

	privs, err = svc.UserPrivileges(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{access.ListUsers}, access.Names(privs))

	require.NoError(t, svc.SetUserRoles(ctx, "u1", nil))
	privs, err = svc.UserPrivileges(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, privs)
}

func TestService_TogglePrivileges(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	coach, err := svc.Create(ctx, role.NewRole{Name: "Coach"})
	require.NoError(t, err)
	listUsers := privilegeID(t, svc, access.ListUsers)
	viewUser := privilegeID(t, svc, access.ViewUser)

	res, err := svc.TogglePrivileges(ctx, coach.ID, role.TogglePrivileges{
		Grant:  []string{listUsers, viewUser, "nope"},
		Revoke: []string{"nope-again"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Results, 4)
	assert.Equal(t, "nope", res.Results[2].ID)
	assert.False(t, res.Results[2].OK)

	res, err = svc.TogglePrivileges(ctx, coach.ID, role.TogglePrivileges{Revoke: []string{viewUser}})
	require.NoError(t, err)
	assert.True(t, res.AllOK())

	privs, err := svc.RolePrivileges(ctx, coach.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{access.ListUsers}, access.Names(privs))

	_, err = svc.TogglePrivileges(ctx, "missing", role.TogglePrivileges{Grant: []string{listUsers}})
	assert.True(t, core.IsNotFound(err))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	admin, err := svc.GetByName(ctx, role.Administrator)
	require.NoError(t, err)
	err = svc.Delete(ctx, admin.ID)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, role.ErrBuiltIn, verr.Err)

	coach, err := svc.Create(ctx, role.NewRole{Name: "Coach"})
	require.NoError(t, err)
	require.NoError(t, svc.SetUserRoles(ctx, "u1", []string{coach.ID}))
	require.NoError(t, svc.Delete(ctx, coach.ID))

	roles, err := svc.UserRoles(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.True(t, core.IsNotFound(svc.Delete(ctx, coach.ID)))
}

func TestService_SetUserRoles_unknownRole(t *testing.T) {
	svc, _ := newService(t)
	err := svc.SetUserRoles(context.Background(), "u1", []string{"missing"})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "role_ids", verr.Fields[0].Field)
}

func TestService_CheckRoles(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	students, err := svc.GetByName(ctx, role.Student)
	require.NoError(t, err)

	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{name: "none", ids: nil},
		{name: "known", ids: []string{students.ID}},
		{name: "one unknown", ids: []string{students.ID, "missing"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckRoles(ctx, tt.ids)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "role_ids", verr.Fields[0].Field)
			assert.Contains(t, verr.Fields[0].Error, "missing")
		})
	}
}

func TestNewRole_Validate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	validate, _ := core.NewValidator()

	nr := role.NewRole{Name: "  administrator "}
	err := nr.Validate(ctx, validate, svc)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Fields[0].Field)

	nr = role.NewRole{Name: " Coach "}
	require.NoError(t, nr.Validate(ctx, validate, svc))
	assert.Equal(t, "Coach", nr.Name)

	admin, err := svc.GetByName(ctx, role.Administrator)
	require.NoError(t, err)
	ur := role.UpdateRole{Name: "Boss"}
	assert.Error(t, ur.Validate(ctx, admin, validate, svc))
}
