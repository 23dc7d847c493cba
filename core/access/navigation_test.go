package access_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dojo/core/access"
)

func TestNavigationEntry_Visible(t *testing.T) {
	names := access.NewNameSet(access.ListUsers, access.ListSessions)

	tests := []struct {
		name  string
		entry access.NavigationEntry
		want  bool
	}{
		{name: "no requirement", entry: access.NavigationEntry{Label: "Home"}, want: true},
		{name: "privilege held", entry: access.NavigationEntry{Privilege: access.ListUsers}, want: true},
		{name: "privilege missing", entry: access.NavigationEntry{Privilege: access.ListRoles}},
		{
			name:  "any of privileges",
			entry: access.NavigationEntry{Privileges: []string{access.TakeAttendance, access.ListSessions}},
			want:  true,
		},
		{name: "none of privileges", entry: access.NavigationEntry{Privileges: []string{access.TakeAttendance, access.ViewSession}}},
		{
			name:  "require all: one missing",
			entry: access.NavigationEntry{Privileges: []string{access.ListUsers, access.AssignRole}, RequireAll: true},
		},
		{
			name:  "require all: every held",
			entry: access.NavigationEntry{Privileges: []string{access.ListUsers, access.ListSessions}, RequireAll: true},
			want:  true,
		},
		{
			name:  "privilege and privileges",
			entry: access.NavigationEntry{Privilege: access.ListRoles, Privileges: []string{access.ListUsers}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Visible(names))
		})
	}
}

func TestDefaultTables(t *testing.T) {
	tables, err := access.DefaultTables()
	require.NoError(t, err)
	require.NotEmpty(t, tables.Admin)
	require.NotEmpty(t, tables.Instructor)
	require.NotEmpty(t, tables.Student)

	known := access.NewNameSet(access.CatalogNames()...)
	for _, table := range [][]access.NavigationEntry{tables.Admin, tables.Instructor, tables.Student} {
		for _, e := range table {
			assert.NotEmpty(t, e.Label)
			assert.True(t, strings.HasPrefix(e.Href, "/dashboard"), e.Href)
			if e.Privilege != "" {
				assert.True(t, known.Has(e.Privilege), "unknown privilege %q", e.Privilege)
			}
			for _, p := range e.Privileges {
				assert.True(t, known.Has(p), "unknown privilege %q", p)
			}
		}
	}

	for _, e := range tables.Student {
		assert.NotEqual(t, access.ListUsers, e.Privilege, "students never see the users screen")
	}
}

func TestDefaultTables_immutable(t *testing.T) {
	tables, err := access.DefaultTables()
	require.NoError(t, err)
	tables.Admin[0].Label = "Hacked"
	tables.Admin = tables.Admin[:1]

	again, err := access.DefaultTables()
	require.NoError(t, err)
	assert.NotEqual(t, "Hacked", again.Admin[0].Label)
	assert.Greater(t, len(again.Admin), 1)
}

func TestResolveNavigation(t *testing.T) {
	tables := access.Tables{
		Admin:      []access.NavigationEntry{{Label: "Users", Privilege: access.ListUsers}},
		Instructor: []access.NavigationEntry{{Label: "Sessions", Privileges: []string{access.ListSessions}}},
		Student:    []access.NavigationEntry{{Label: "Profile"}},
	}

	assert.Equal(t, tables.Admin, access.ResolveNavigation(access.ClassAdmin, tables))
	assert.Equal(t, tables.Instructor, access.ResolveNavigation(access.ClassInstructor, tables))
	assert.Equal(t, tables.Student, access.ResolveNavigation(access.ClassStudent, tables))
	assert.Empty(t, access.ResolveNavigation(access.Class("ghost"), tables))

	got := access.ResolveNavigation(access.ClassInstructor, tables)
	got[0].Privileges[0] = access.DeleteUser
	assert.Equal(t, access.ListSessions, tables.Instructor[0].Privileges[0])
}

func TestLoadTables_unknownField(t *testing.T) {
	_, err := access.LoadTables(strings.NewReader("admin:\n  - label: X\n    colour: red\n"))
	assert.Error(t, err)
}
