// Package catalog builds the name → template index from synchronized
// sources.
package catalog

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/memelab/memegen/pkg/source"
)

var log = logging.Logger("catalog")

// ManifestError is a per-template parse failure. The template is skipped and
// reported; it never fails the catalog build.
type ManifestError struct {
	Source   string
	Template string
	Err      error
}

func (e ManifestError) Error() string {
	return fmt.Sprintf("template %s in source %s: %v", e.Template, e.Source, e.Err)
}

func (e ManifestError) Unwrap() error { return e.Err }

// ErrTemplateNotFound reports a generate-time lookup of a name no source
// defines.
type ErrTemplateNotFound struct {
	Name string
}

func (e ErrTemplateNotFound) Error() string {
	return fmt.Sprintf("no such template %q", e.Name)
}

// Catalog is the index of every resolvable template. It is rebuilt in full
// from the synced sources on each build; it is never mutated afterwards, so
// concurrent reads need no locking.
type Catalog struct {
	defs  map[string]Definition
	names []string
}

// Build scans the synced sources in their declared order and indexes every
// parseable template. When two sources define the same name, the earlier
// source wins, so a local source listed first overrides upstream templates.
// Malformed templates are returned as ManifestErrors and skipped; an empty
// source contributes nothing and is not an error.
func Build(sources []source.Synced) (*Catalog, []ManifestError) {
	cat := &Catalog{defs: make(map[string]Definition)}
	var skipped []ManifestError

	for _, src := range sources {
		entries, err := fs.ReadDir(src.FS, ".")
		if err != nil {
			skipped = append(skipped, ManifestError{Source: src.Alias, Err: fmt.Errorf("reading source directory: %w", err)})
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			if _, taken := cat.defs[name]; taken {
				log.Debugf("template %s from source %s shadowed by an earlier source", name, src.Alias)
				continue
			}
			def, err := parseDefinition(src.FS, name, name, src.Alias)
			if err != nil {
				skipped = append(skipped, ManifestError{Source: src.Alias, Template: name, Err: err})
				continue
			}
			cat.defs[name] = def
			cat.names = append(cat.names, name)
		}
	}

	sort.Strings(cat.names)
	return cat, skipped
}

// Resolve returns the definition for name, or ErrTemplateNotFound.
func (c *Catalog) Resolve(name string) (Definition, error) {
	def, ok := c.defs[name]
	if !ok {
		return Definition{}, ErrTemplateNotFound{Name: name}
	}
	return def, nil
}

// Names returns every indexed template name, sorted. Used for listing and to
// power shell completion.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of indexed templates.
func (c *Catalog) Len() int { return len(c.defs) }
