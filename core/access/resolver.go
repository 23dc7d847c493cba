package access

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
)

//go:generate mockgen -source=resolver.go -destination=../../mocks/access.go -package=mocks

// PrivilegeSource resolves the privilege catalog and the privileges of a user.
type PrivilegeSource interface {
	Catalog(ctx context.Context) ([]Privilege, error)
	UserPrivileges(ctx context.Context, userID string) ([]Privilege, error)
}

// Navigation is what a portal shell renders: the viewer's class and sidebar entries.
type Navigation struct {
	Role  Class             `json:"role"`
	Items []NavigationEntry `json:"items"`
}

type Resolver struct {
	src        PrivilegeSource
	tables     Tables
	instructor []string
	filter     bool
	logger     core.Logger
}

type ResolverOption func(*Resolver)

// WithEntryFilter drops the entries whose requirement the viewer does not meet.
func WithEntryFilter(enabled bool) ResolverOption {
	return func(r *Resolver) { r.filter = enabled }
}

// WithInstructorPrivileges overrides InstructorPrivileges.
func WithInstructorPrivileges(names []string) ResolverOption {
	return func(r *Resolver) { r.instructor = append([]string(nil), names...) }
}

func NewResolver(src PrivilegeSource, tables Tables, logger core.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		src:        src,
		tables:     tables,
		instructor: InstructorPrivileges,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify fetches the catalog and the user's privileges and classifies the user.
func (r *Resolver) Classify(ctx context.Context, userID string) (Class, []Privilege, error) {
	catalog, err := r.src.Catalog(ctx)
	if err != nil {
		return "", nil, errors.Wrap(err, "fetching privilege catalog")
	}
	privs, err := r.src.UserPrivileges(ctx, userID)
	if err != nil {
		return "", nil, errors.Wrap(err, "fetching user privileges")
	}
	return ClassifyRole(NameSetOf(privs), Names(catalog), r.instructor), privs, nil
}

// Resolve returns the navigation of a user. Fetch failures are logged and yield an empty navigation.
func (r *Resolver) Resolve(ctx context.Context, userID string) Navigation {
	class, privs, err := r.Classify(ctx, userID)
	if err != nil {
		r.logger.Warn(fmt.Sprintf("resolving navigation of user %q: %v", userID, err), err)
		return Navigation{Items: []NavigationEntry{}}
	}

	items := ResolveNavigation(class, r.tables)
	if r.filter {
		items = FilterEntries(items, NameSetOf(privs))
	}
	return Navigation{Role: class, Items: items}
}
