package access

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appfs "github.com/trezcool/dojo/fs"
)

const navigationAsset = "assets/navigation.yaml"

var (
	defaultTables     Tables
	defaultTablesErr  error
	defaultTablesOnce sync.Once
)

// NavigationEntry is one sidebar item of a portal.
type NavigationEntry struct {
	Label      string   `json:"label" yaml:"label"`
	Href       string   `json:"href" yaml:"href"`
	Icon       string   `json:"icon" yaml:"icon"`
	Privilege  string   `json:"privilege,omitempty" yaml:"privilege"`
	Privileges []string `json:"privileges,omitempty" yaml:"privileges"`
	RequireAll bool     `json:"require_all,omitempty" yaml:"require_all"`
}

// Visible reports whether a viewer holding names satisfies the entry's requirement.
// Entries without requirement are always visible.
func (e NavigationEntry) Visible(names NameSet) bool {
	if e.Privilege != "" && !names.Has(e.Privilege) {
		return false
	}
	if len(e.Privileges) == 0 {
		return true
	}
	if e.RequireAll {
		return names.HasAll(e.Privileges...)
	}
	return names.HasAny(e.Privileges...)
}

func (e NavigationEntry) clone() NavigationEntry {
	if e.Privileges != nil {
		e.Privileges = append([]string(nil), e.Privileges...)
	}
	return e
}

// Tables holds the navigation of each portal.
type Tables struct {
	Admin      []NavigationEntry `yaml:"admin"`
	Instructor []NavigationEntry `yaml:"instructor"`
	Student    []NavigationEntry `yaml:"student"`
}

// LoadTables decodes navigation tables from YAML.
func LoadTables(r io.Reader) (Tables, error) {
	var t Tables
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Tables{}, errors.Wrap(err, "decoding navigation tables")
	}
	return t, nil
}

// DefaultTables returns a copy of the embedded navigation tables, decoded once per process.
func DefaultTables() (Tables, error) {
	defaultTablesOnce.Do(func() {
		f, err := appfs.FS.Open(navigationAsset)
		if err != nil {
			defaultTablesErr = errors.Wrap(err, "opening navigation tables")
			return
		}
		defer f.Close()
		defaultTables, defaultTablesErr = LoadTables(f)
	})
	if defaultTablesErr != nil {
		return Tables{}, defaultTablesErr
	}
	return Tables{
		Admin:      cloneEntries(defaultTables.Admin),
		Instructor: cloneEntries(defaultTables.Instructor),
		Student:    cloneEntries(defaultTables.Student),
	}, nil
}

// ResolveNavigation returns a copy of the table of the given class, unfiltered.
func ResolveNavigation(class Class, tables Tables) []NavigationEntry {
	switch class {
	case ClassAdmin:
		return cloneEntries(tables.Admin)
	case ClassInstructor:
		return cloneEntries(tables.Instructor)
	case ClassStudent:
		return cloneEntries(tables.Student)
	default:
		return []NavigationEntry{}
	}
}

// FilterEntries keeps the entries visible to a viewer holding names.
func FilterEntries(entries []NavigationEntry, names NameSet) []NavigationEntry {
	visible := make([]NavigationEntry, 0, len(entries))
	for _, e := range entries {
		if e.Visible(names) {
			visible = append(visible, e)
		}
	}
	return visible
}

func cloneEntries(entries []NavigationEntry) []NavigationEntry {
	cp := make([]NavigationEntry, 0, len(entries))
	for _, e := range entries {
		cp = append(cp, e.clone())
	}
	return cp
}
