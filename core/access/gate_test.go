package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/dojo/core/access"
)

func privs(names ...string) []access.Privilege {
	ps := make([]access.Privilege, 0, len(names))
	for _, n := range names {
		ps = append(ps, access.Privilege{ID: "id-" + n, Name: n})
	}
	return ps
}

func TestHasAccess(t *testing.T) {
	userPrivs := privs(access.ListUsers, access.ViewUser, access.ViewDiscipline)

	tests := []struct {
		name     string
		privs    []access.Privilege
		mode     access.Mode
		required []string
		want     bool
	}{
		{name: "no privileges", privs: nil, mode: access.ModeAny, required: []string{access.ListUsers}},
		{name: "empty privileges", privs: []access.Privilege{}, mode: access.ModeAll, required: []string{access.ListUsers}},
		{name: "nothing required", privs: userPrivs, mode: access.ModeAny},
		{name: "single present", privs: userPrivs, mode: access.ModeAny, required: []string{access.ListUsers}, want: true},
		{name: "single absent", privs: userPrivs, mode: access.ModeAny, required: []string{access.DeleteUser}},
		{name: "empty name", privs: userPrivs, mode: access.ModeAny, required: []string{""}},
		{
			name: "any: one present", privs: userPrivs, mode: access.ModeAny,
			required: []string{access.DeleteUser, access.ViewUser}, want: true,
		},
		{name: "any: none present", privs: userPrivs, mode: access.ModeAny, required: []string{access.DeleteUser, access.CreateUser}},
		{name: "all: one missing", privs: userPrivs, mode: access.ModeAll, required: []string{access.ListUsers, access.DeleteUser}},
		{
			name: "all: every present", privs: userPrivs, mode: access.ModeAll,
			required: []string{access.ListUsers, access.ViewUser}, want: true,
		},
		{name: "unknown mode", privs: userPrivs, mode: access.Mode("some"), required: []string{access.ListUsers}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.HasAccess(tt.privs, tt.mode, tt.required...))
		})
	}
}

func TestHasAccess_membership(t *testing.T) {
	// HasAccess(P, any, name) is true iff name is one of P's names
	for _, n := range access.CatalogNames() {
		assert.False(t, access.HasAccess(nil, access.ModeAny, n), n)

		held := privs(n)
		for _, other := range access.CatalogNames() {
			assert.Equal(t, n == other, access.HasAccess(held, access.ModeAny, other), "%s holds %s", n, other)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    access.Mode
		wantErr error
	}{
		{in: "", want: access.ModeAny},
		{in: "any", want: access.ModeAny},
		{in: " ALL ", want: access.ModeAll},
		{in: "some", wantErr: access.ErrInvalidMode},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := access.ParseMode(tt.in)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAdmin(t *testing.T) {
	catalog := []string{access.ListUsers, access.ViewUser}

	assert.True(t, access.IsAdmin(privs(access.ListUsers, access.ViewUser), catalog))
	assert.True(t, access.IsAdmin(privs(access.ListUsers, access.ViewUser, access.DeleteUser), catalog))
	assert.False(t, access.IsAdmin(privs(access.ListUsers), catalog))
	assert.False(t, access.IsAdmin(nil, catalog))
	assert.False(t, access.IsAdmin(privs(access.ListUsers), nil), "an empty catalog makes nobody admin")
	assert.False(t, access.IsAdmin(privs("admin"), catalog), "no string sentinel")
}
