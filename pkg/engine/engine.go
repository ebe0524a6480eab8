// Package engine wires sources, catalog, and renderer into the generation
// pipeline behind the CLI.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"
	"github.com/memelab/memegen/pkg/catalog"
	"github.com/memelab/memegen/pkg/render"
	"github.com/memelab/memegen/pkg/source"
	"github.com/natefinch/atomic"
)

var log = logging.Logger("engine")

// ErrNoLocalSource reports that template authoring needs a local source and
// none is configured.
var ErrNoLocalSource = errors.New("no local source configured")

// Report collects the non-fatal failures of a catalog build: sources whose
// caches could not be read and templates whose manifests did not parse.
// Everything else in the catalog is usable regardless.
type Report struct {
	Sources   []source.Outcome
	Templates []catalog.ManifestError
}

// Engine owns one configured source list and the pipeline built over it. The
// catalog is not long-lived state: every call that needs it rebuilds it from
// the synced directories, so a completed UpdateSources is always visible to
// the next call.
type Engine struct {
	descriptors []source.Descriptor
	syncer      *source.Syncer
	renderer    *render.Renderer
}

// New validates the descriptor list and returns an Engine over it. A
// duplicate alias is a configuration error, reported here before any I/O
// happens.
func New(descs []source.Descriptor, syncer *source.Syncer, renderer *render.Renderer) (*Engine, error) {
	if err := source.ValidateDescriptors(descs); err != nil {
		return nil, err
	}
	return &Engine{descriptors: descs, syncer: syncer, renderer: renderer}, nil
}

// Descriptors returns the configured sources in precedence order.
func (e *Engine) Descriptors() []source.Descriptor {
	out := make([]source.Descriptor, len(e.descriptors))
	copy(out, e.descriptors)
	return out
}

// UpdateSources syncs every configured source, best-effort, and returns one
// outcome per source in configuration order.
func (e *Engine) UpdateSources(ctx context.Context) ([]source.Outcome, error) {
	return e.syncer.Sync(ctx, e.descriptors)
}

// Catalog rebuilds the template index from whatever sources are currently
// materialized. Unsyncable sources and unparseable templates land in the
// report, never in the error.
func (e *Engine) Catalog() (*catalog.Catalog, Report, error) {
	synced, failed, err := e.syncer.Resolve(e.descriptors)
	if err != nil {
		return nil, Report{}, err
	}
	cat, skipped := catalog.Build(synced)
	for _, o := range failed {
		log.Warnf("source %s unavailable: %v", o.Alias, o.Err)
	}
	for _, s := range skipped {
		log.Warnf("skipped %v", s)
	}
	return cat, Report{Sources: failed, Templates: skipped}, nil
}

// ListTemplates returns the sorted names of every resolvable template, the
// union across all readable sources.
func (e *Engine) ListTemplates() ([]string, error) {
	cat, _, err := e.Catalog()
	if err != nil {
		return nil, err
	}
	return cat.Names(), nil
}

// Generate resolves name, binds args to its regions, and renders. Errors are
// specific to this call: an unknown name, too many arguments, or a corrupt
// template asset.
func (e *Engine) Generate(name string, args []string) (*render.Image, error) {
	cat, _, err := e.Catalog()
	if err != nil {
		return nil, err
	}
	def, err := cat.Resolve(name)
	if err != nil {
		return nil, err
	}
	bound, err := render.Bind(def, args)
	if err != nil {
		return nil, err
	}
	return e.renderer.Render(def, bound)
}

// MakeTemplate writes a new template directory (PNG base image plus
// manifest) into the first configured local source, where it will shadow any
// later source defining the same name.
func (e *Engine) MakeTemplate(name string, pngData []byte, regions []catalog.Region) error {
	var root string
	for _, d := range e.descriptors {
		if l, ok := d.(source.LocalSource); ok {
			root = l.Path
			break
		}
	}
	if root == "" {
		return ErrNoLocalSource
	}

	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return fmt.Errorf("creating template directory: %w", err)
	}
	manifest, err := catalog.EncodeManifest([4]float64{0, 0, 0, 1}, regions)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(dir, "image.png"), bytes.NewReader(pngData)); err != nil {
		return fmt.Errorf("writing base image: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(dir, catalog.ManifestName), bytes.NewReader(manifest)); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
