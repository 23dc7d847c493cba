package access_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/dojo/core/access"
)

func TestClassifyRole(t *testing.T) {
	catalog := []string{access.ListUsers, access.ViewUser}

	tests := []struct {
		name  string
		names []string
		want  access.Class
	}{
		{name: "full catalog", names: []string{access.ListUsers, access.ViewUser}, want: access.ClassAdmin},
		{
			name:  "exact instructor subset",
			names: append([]string{access.ViewInstructorDiscipline, access.ViewMatriculation}, access.InstructorPrivileges...),
			want:  access.ClassInstructor,
		},
		{
			name:  "catalog and instructor subset",
			names: append([]string{access.ListUsers, access.ViewUser}, access.InstructorPrivileges...),
			want:  access.ClassAdmin,
		},
		{name: "partial instructor subset", names: access.InstructorPrivileges[1:], want: access.ClassStudent},
		{name: "view_discipline only", names: []string{access.ViewDiscipline}, want: access.ClassStudent},
		{name: "nothing", want: access.ClassStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := access.ClassifyRole(access.NewNameSet(tt.names...), catalog, access.InstructorPrivileges)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyRole_emptySets(t *testing.T) {
	names := access.NewNameSet(access.ListUsers)
	assert.Equal(t, access.ClassStudent, access.ClassifyRole(names, nil, nil))
	assert.Equal(t, access.ClassStudent, access.ClassifyRole(access.NewNameSet(), []string{}, []string{}))
}

// admin iff C ⊆ P; instructor iff C ⊄ P and I ⊆ P; else student
func TestClassifyRole_properties(t *testing.T) {
	all := access.CatalogNames()
	rnd := rand.New(rand.NewSource(42))

	subset := func(p float64) []string {
		out := make([]string, 0, len(all))
		for _, n := range all {
			if rnd.Float64() < p {
				out = append(out, n)
			}
		}
		return out
	}
	contains := func(set access.NameSet, names []string) bool {
		for _, n := range names {
			if !set.Has(n) {
				return false
			}
		}
		return true
	}

	for i := 0; i < 500; i++ {
		catalog := subset(0.2)
		if len(catalog) == 0 {
			catalog = []string{access.ListUsers}
		}
		held := access.NewNameSet(subset(0.8)...)
		if i%3 == 0 {
			for _, n := range access.InstructorPrivileges {
				held[n] = struct{}{}
			}
		}

		got := access.ClassifyRole(held, catalog, access.InstructorPrivileges)
		switch {
		case contains(held, catalog):
			assert.Equal(t, access.ClassAdmin, got)
		case contains(held, access.InstructorPrivileges):
			assert.Equal(t, access.ClassInstructor, got)
		default:
			assert.Equal(t, access.ClassStudent, got)
		}
	}
}
