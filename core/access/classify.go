package access

// Class is the portal a user belongs to, derived from their privileges.
// It is distinct from the Role entity assigned in the back office.
type Class string

const (
	ClassAdmin      Class = "admin"
	ClassInstructor Class = "instructor"
	ClassStudent    Class = "student"
)

// ClassifyRole returns ClassAdmin when names hold the whole catalog,
// else ClassInstructor when they hold the whole instructor subset, else ClassStudent.
// An empty catalog or subset never matches.
func ClassifyRole(names NameSet, catalog, instructor []string) Class {
	if names.HasAll(catalog...) {
		return ClassAdmin
	}
	if names.HasAll(instructor...) {
		return ClassInstructor
	}
	return ClassStudent
}
