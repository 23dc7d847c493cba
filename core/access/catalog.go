package access

// Privilege is an atomic named permission. Names are snake_case "<action>_<resource>".
type Privilege struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Privilege names
const (
	// users
	ListUsers  = "list_users"
	ViewUser   = "view_user"
	CreateUser = "create_user"
	UpdateUser = "update_user"
	DeleteUser = "delete_user"
	AssignRole = "assign_role"

	// roles & privileges
	ListRoles       = "list_roles"
	ViewRole        = "view_role"
	CreateRole      = "create_role"
	UpdateRole      = "update_role"
	DeleteRole      = "delete_role"
	ListPrivileges  = "list_privileges"
	AssignPrivilege = "assign_privilege"

	// disciplines
	ListDisciplines          = "list_disciplines"
	ViewDiscipline           = "view_discipline"
	CreateDiscipline         = "create_discipline"
	UpdateDiscipline         = "update_discipline"
	DeleteDiscipline         = "delete_discipline"
	ViewInstructorDiscipline = "view_instructor_discipline"

	// training schedules
	ListTrainingSchedules  = "list_training_schedules"
	ViewTrainingSchedule   = "view_training_schedule"
	CreateTrainingSchedule = "create_training_schedule"
	UpdateTrainingSchedule = "update_training_schedule"
	DeleteTrainingSchedule = "delete_training_schedule"

	// sessions & attendance
	ListSessions   = "list_sessions"
	ViewSession    = "view_session"
	CreateSession  = "create_session"
	UpdateSession  = "update_session"
	DeleteSession  = "delete_session"
	TakeAttendance = "take_attendance"

	// matriculations
	ListMatriculations  = "list_matriculations"
	ViewMatriculation   = "view_matriculation"
	CreateMatriculation = "create_matriculation"
	UpdateMatriculation = "update_matriculation"
	DeleteMatriculation = "delete_matriculation"

	// daily absences
	ListDailyAbsences  = "list_daily_absences"
	ViewDailyAbsence   = "view_daily_absence"
	CreateDailyAbsence = "create_daily_absence"
	UpdateDailyAbsence = "update_daily_absence"
	DeleteDailyAbsence = "delete_daily_absence"

	// practitioner (emergency) contacts
	ListPractitionerContacts  = "list_practitioner_contacts"
	ViewPractitionerContact   = "view_practitioner_contact"
	CreatePractitionerContact = "create_practitioner_contact"
	UpdatePractitionerContact = "update_practitioner_contact"
	DeletePractitionerContact = "delete_practitioner_contact"
)

// Catalog is the full list of known privileges. It is synced into the database at start-up.
var Catalog = []Privilege{
	{Name: ListUsers, Description: "List users"},
	{Name: ViewUser, Description: "View a user's profile"},
	{Name: CreateUser, Description: "Create users"},
	{Name: UpdateUser, Description: "Update users"},
	{Name: DeleteUser, Description: "Delete users"},
	{Name: AssignRole, Description: "Assign roles to users"},

	{Name: ListRoles, Description: "List roles"},
	{Name: ViewRole, Description: "View a role and its privileges"},
	{Name: CreateRole, Description: "Create roles"},
	{Name: UpdateRole, Description: "Update roles"},
	{Name: DeleteRole, Description: "Delete roles"},
	{Name: ListPrivileges, Description: "List privileges"},
	{Name: AssignPrivilege, Description: "Grant and revoke role privileges"},

	{Name: ListDisciplines, Description: "List disciplines"},
	{Name: ViewDiscipline, Description: "View a discipline"},
	{Name: CreateDiscipline, Description: "Create disciplines"},
	{Name: UpdateDiscipline, Description: "Update disciplines"},
	{Name: DeleteDiscipline, Description: "Delete disciplines"},
	{Name: ViewInstructorDiscipline, Description: "View the disciplines one teaches"},

	{Name: ListTrainingSchedules, Description: "List training schedules"},
	{Name: ViewTrainingSchedule, Description: "View a training schedule"},
	{Name: CreateTrainingSchedule, Description: "Create training schedules"},
	{Name: UpdateTrainingSchedule, Description: "Update training schedules"},
	{Name: DeleteTrainingSchedule, Description: "Delete training schedules"},

	{Name: ListSessions, Description: "List training sessions"},
	{Name: ViewSession, Description: "View a training session"},
	{Name: CreateSession, Description: "Create training sessions"},
	{Name: UpdateSession, Description: "Update training sessions"},
	{Name: DeleteSession, Description: "Delete training sessions"},
	{Name: TakeAttendance, Description: "Record session attendance"},

	{Name: ListMatriculations, Description: "List matriculations"},
	{Name: ViewMatriculation, Description: "View a matriculation"},
	{Name: CreateMatriculation, Description: "Create matriculations"},
	{Name: UpdateMatriculation, Description: "Update matriculations"},
	{Name: DeleteMatriculation, Description: "Delete matriculations"},

	{Name: ListDailyAbsences, Description: "List daily absences"},
	{Name: ViewDailyAbsence, Description: "View a daily absence"},
	{Name: CreateDailyAbsence, Description: "Record daily absences"},
	{Name: UpdateDailyAbsence, Description: "Update daily absences"},
	{Name: DeleteDailyAbsence, Description: "Delete daily absences"},

	{Name: ListPractitionerContacts, Description: "List every practitioner's emergency contacts"},
	{Name: ViewPractitionerContact, Description: "View an emergency contact"},
	{Name: CreatePractitionerContact, Description: "Create emergency contacts"},
	{Name: UpdatePractitionerContact, Description: "Update emergency contacts"},
	{Name: DeletePractitionerContact, Description: "Delete emergency contacts"},
}

// InstructorPrivileges is the fixed subset whose possession makes a user an instructor.
var InstructorPrivileges = []string{
	ViewInstructorDiscipline,
	ViewDiscipline,
	ListTrainingSchedules,
	ViewTrainingSchedule,
	ListSessions,
	ViewSession,
	CreateSession,
	UpdateSession,
	TakeAttendance,
	ViewMatriculation,
	ListDailyAbsences,
	ViewDailyAbsence,
	CreateDailyAbsence,
}

// StudentPrivileges is granted to the built-in Student role.
var StudentPrivileges = []string{
	ViewDiscipline,
	ViewTrainingSchedule,
	ViewSession,
	ViewMatriculation,
	ViewDailyAbsence,
	ViewPractitionerContact,
	CreatePractitionerContact,
	UpdatePractitionerContact,
	DeletePractitionerContact,
}

// CatalogNames returns the names of the Catalog privileges.
func CatalogNames() []string {
	return Names(Catalog)
}

// Names maps privileges to their names.
func Names(privs []Privilege) []string {
	names := make([]string, 0, len(privs))
	for _, p := range privs {
		names = append(names, p.Name)
	}
	return names
}

// NameSet is a set of privilege names.
type NameSet map[string]struct{}

func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func NameSetOf(privs []Privilege) NameSet {
	return NewNameSet(Names(privs)...)
}

func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// HasAll reports whether every name is in the set. It is false for no names.
func (s NameSet) HasAll(names ...string) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one name is in the set.
func (s NameSet) HasAny(names ...string) bool {
	for _, n := range names {
		if s.Has(n) {
			return true
		}
	}
	return false
}
