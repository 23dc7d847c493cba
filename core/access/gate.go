// Package access resolves what a user may see and do from their privileges.
package access

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode tells HasAccess whether any or all of the required privileges are needed.
type Mode string

const (
	ModeAny Mode = "any"
	ModeAll Mode = "all"
)

var ErrInvalidMode = errors.New("mode must be one of: any, all")

// ParseMode parses a query value. The empty string means ModeAny.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAny:
		return ModeAny, nil
	case ModeAll:
		return ModeAll, nil
	default:
		return "", ErrInvalidMode
	}
}

// HasAccess reports whether userPrivileges satisfy the required privilege names under mode.
// It is false when nothing is required, when the user holds no privileges and for an unknown mode.
func HasAccess(userPrivileges []Privilege, mode Mode, required ...string) bool {
	if len(required) == 0 || len(userPrivileges) == 0 {
		return false
	}
	names := NameSetOf(userPrivileges)
	switch mode {
	case ModeAny:
		return names.HasAny(required...)
	case ModeAll:
		return names.HasAll(required...)
	default:
		return false
	}
}

// Can is HasAccess for a single privilege.
func Can(userPrivileges []Privilege, privilege string) bool {
	return HasAccess(userPrivileges, ModeAny, privilege)
}

// IsAdmin reports whether the user holds every privilege of the catalog.
func IsAdmin(userPrivileges []Privilege, catalog []string) bool {
	return ClassifyRole(NameSetOf(userPrivileges), catalog, nil) == ClassAdmin
}
