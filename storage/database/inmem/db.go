// Package inmemdb keeps every table in maps guarded by one lock.
// It backs the tests and the "memory" database engine.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/contact"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/matriculation"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/training"
	"github.com/trezcool/dojo/core/user"
)

type (
	DB struct {
		mu sync.RWMutex

		users          map[string]*user.User
		roles          map[string]*role.Role
		privileges     map[string]*access.Privilege
		rolePrivileges map[string]set // role id -> privilege ids
		userRoles      map[string]set // user id -> role ids
		disciplines    map[string]*discipline.Discipline
		schedules      map[string]*training.Schedule
		sessions       map[string]*training.Session
		attendance     map[string]map[string]*training.Attendance // session id -> user id -> row
		absences       map[string]*training.DailyAbsence
		matriculations map[string]*matriculation.Matriculation
		contacts       map[string]*contact.PractitionerContact
	}

	set map[string]struct{}
)

func Open() *DB {
	return &DB{
		users:          make(map[string]*user.User),
		roles:          make(map[string]*role.Role),
		privileges:     make(map[string]*access.Privilege),
		rolePrivileges: make(map[string]set),
		userRoles:      make(map[string]set),
		disciplines:    make(map[string]*discipline.Discipline),
		schedules:      make(map[string]*training.Schedule),
		sessions:       make(map[string]*training.Session),
		attendance:     make(map[string]map[string]*training.Attendance),
		absences:       make(map[string]*training.DailyAbsence),
		matriculations: make(map[string]*matriculation.Matriculation),
		contacts:       make(map[string]*contact.PractitionerContact),
	}
}

func newID() string {
	return uuid.New().String()
}

func (s set) add(id string) { s[id] = struct{}{} }

func (s set) has(id string) bool {
	_, ok := s[id]
	return ok
}

func excluded(id string, excludedIDs []string) bool {
	for _, ex := range excludedIDs {
		if ex == id {
			return true
		}
	}
	return false
}
