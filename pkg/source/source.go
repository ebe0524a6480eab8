// Package source defines template source descriptors and keeps their local
// caches in sync.
package source

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Descriptor identifies a single configured template source. It is one of
// [GitSource] or [LocalSource]. Descriptors are constructed once from parsed
// configuration and are immutable; their order in the configured list encodes
// override precedence for the catalog.
type Descriptor interface {
	// Alias returns the unique short name of the source, used to key its
	// cache directory and to report per-source outcomes.
	Alias() string
	fmt.Stringer

	sealed()
}

// GitSource is a remote git repository of templates, cached locally under its
// alias.
type GitSource struct {
	URL  string
	Name string
}

// Alias returns the configured alias of the git source.
func (g GitSource) Alias() string { return g.Name }

func (g GitSource) String() string { return fmt.Sprintf("git source %s (%s)", g.Name, g.URL) }

func (g GitSource) sealed() {}

// LocalSource is a directory of templates referenced in place, never copied.
type LocalSource struct {
	Path string
}

// Alias returns the alias derived from the path basename.
func (l LocalSource) Alias() string {
	return strings.TrimSuffix(filepath.Base(filepath.Clean(l.Path)), string(filepath.Separator))
}

func (l LocalSource) String() string { return fmt.Sprintf("local source %s", l.Path) }

func (l LocalSource) sealed() {}

// ErrDuplicateAlias is a configuration error: two descriptors in the same
// list resolved to the same alias.
type ErrDuplicateAlias struct {
	Alias string
}

func (e ErrDuplicateAlias) Error() string {
	return fmt.Sprintf("duplicate source alias %q", e.Alias)
}

// ValidateDescriptors checks that every descriptor in the list carries a
// non-empty, unique alias. It performs no I/O and must pass before any sync
// or catalog build touches the descriptors.
func ValidateDescriptors(descs []Descriptor) error {
	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		alias := d.Alias()
		if alias == "" || alias == "." {
			return fmt.Errorf("source %s has no usable alias", d)
		}
		if seen[alias] {
			return ErrDuplicateAlias{Alias: alias}
		}
		seen[alias] = true
	}
	return nil
}

// Synced is the materialized, read-only view of one descriptor after a
// successful sync. Consumers read templates through FS and never mutate the
// backing directory.
type Synced struct {
	Alias string
	Dir   string
	FS    fs.FS
}
