package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
)

var log = logging.Logger("source/sync")

// defaultWorkers bounds how many sources sync at once.
const defaultWorkers = 4

// SyncError is a per-source sync failure. One source failing never aborts the
// sync of the remaining sources.
type SyncError struct {
	Alias string
	Err   error
}

func (e SyncError) Error() string {
	return fmt.Sprintf("syncing source %s: %v", e.Alias, e.Err)
}

func (e SyncError) Unwrap() error { return e.Err }

// Action describes what a sync did for one source.
type Action string

const (
	// ActionCloned means a fresh clone was created for a git source.
	ActionCloned Action = "cloned"
	// ActionUpdated means an existing git cache was fetched and fast-forwarded.
	ActionUpdated Action = "updated"
	// ActionChecked means a local source was verified to exist.
	ActionChecked Action = "checked"
)

// Outcome is the per-source result of a sync pass.
type Outcome struct {
	Alias  string
	Action Action
	Err    error
}

// OK reports whether the source synced successfully.
func (o Outcome) OK() bool { return o.Err == nil }

// Syncer materializes source descriptors into per-alias cache directories.
// Each alias owns a disjoint subdirectory of CacheDir, so independent sources
// sync in parallel without shared state. Operations on the same alias
// serialize on a per-alias lock, and all mutation happens in sibling staging
// directories renamed into place, so the live directory always holds either
// the prior state or a fully synced one.
type Syncer struct {
	// CacheDir is the root under which git sources are cached, one
	// subdirectory per alias. Local sources are referenced in place and
	// never enter the cache.
	CacheDir string
	// Git performs clone and update operations.
	Git GitClient
	// Workers bounds sync parallelism; zero means a small default.
	Workers int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncer returns a Syncer caching git sources under cacheDir.
func NewSyncer(cacheDir string, git GitClient) *Syncer {
	return &Syncer{CacheDir: cacheDir, Git: git}
}

func (s *Syncer) lockFor(alias string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[alias]
	if !ok {
		l = &sync.Mutex{}
		s.locks[alias] = l
	}
	return l
}

func (s *Syncer) cachePath(alias string) string {
	return filepath.Join(s.CacheDir, alias)
}

// Sync brings the cache for every descriptor up to date, best-effort per
// source, and returns one Outcome per descriptor in input order. The only
// non-nil error is a configuration error (duplicate alias), raised before any
// I/O. Re-running after a partial failure retries just the failed sources'
// work: fresh clone vs. update is re-decided each call from what is on disk.
func (s *Syncer) Sync(ctx context.Context, descs []Descriptor) ([]Outcome, error) {
	if err := ValidateDescriptors(descs); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(descs))
	jobs := make(chan int)

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(descs) {
		workers = len(descs)
	}

	group, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		group.Go(func() error {
			return worker(gctx, jobs, func(i int) {
				outcomes[i] = s.syncOne(gctx, descs[i])
			})
		})
	}

feed:
	for i := range descs {
		select {
		case jobs <- i:
		case <-gctx.Done():
			break feed
		}
	}
	close(jobs)
	groupErr := group.Wait()

	for i, d := range descs {
		if outcomes[i].Alias == "" {
			outcomes[i] = Outcome{Alias: d.Alias(), Err: SyncError{Alias: d.Alias(), Err: groupErr}}
		}
	}
	return outcomes, nil
}

func (s *Syncer) syncOne(ctx context.Context, desc Descriptor) Outcome {
	alias := desc.Alias()
	l := s.lockFor(alias)
	l.Lock()
	defer l.Unlock()

	action, err := s.materialize(ctx, desc)
	if err != nil {
		log.Warnf("sync of %s failed: %v", desc, err)
		return Outcome{Alias: alias, Action: action, Err: SyncError{Alias: alias, Err: err}}
	}
	return Outcome{Alias: alias, Action: action}
}

func (s *Syncer) materialize(ctx context.Context, desc Descriptor) (Action, error) {
	switch d := desc.(type) {
	case GitSource:
		return s.materializeGit(ctx, d)
	case LocalSource:
		if err := checkLocalDir(d.Path); err != nil {
			return "", err
		}
		return ActionChecked, nil
	default:
		return "", fmt.Errorf("unknown descriptor type %T", desc)
	}
}

func (s *Syncer) materializeGit(ctx context.Context, d GitSource) (Action, error) {
	dir := s.cachePath(d.Name)

	if dirPopulated(dir) {
		log.Debugf("updating repository %s (%s)", d.Name, d.URL)
		err := s.updateStaged(ctx, dir)
		if !errors.Is(err, ErrNotRepository) {
			return ActionUpdated, err
		}
		// Corrupt cache, likely an interrupted earlier clone. Discard it
		// and treat this pass as a fresh clone.
		log.Warnf("cache for %s is corrupt, re-cloning: %v", d.Name, err)
		if err := os.RemoveAll(dir); err != nil {
			return ActionCloned, fmt.Errorf("removing corrupt cache: %w", err)
		}
	}

	// Clone into a sibling staging directory and rename into place, so a
	// failed or cancelled clone never leaves a partial cache visible.
	log.Debugf("cloning repository %s (%s)", d.Name, d.URL)
	if err := os.MkdirAll(s.CacheDir, 0o755); err != nil {
		return ActionCloned, fmt.Errorf("creating cache root: %w", err)
	}
	staging := dir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return ActionCloned, fmt.Errorf("clearing staging directory: %w", err)
	}
	if err := s.Git.Clone(ctx, staging, d.URL); err != nil {
		os.RemoveAll(staging)
		return ActionCloned, err
	}
	if err := os.RemoveAll(dir); err != nil {
		os.RemoveAll(staging)
		return ActionCloned, fmt.Errorf("clearing cache directory: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		os.RemoveAll(staging)
		return ActionCloned, fmt.Errorf("activating staged clone: %w", err)
	}
	return ActionCloned, nil
}

// updateStaged fetches into a copy of the cache directory and swaps the copy
// into place. The live directory is never mutated in place: a failed or
// cancelled update discards the copy and leaves the last-known-good cache
// untouched.
func (s *Syncer) updateStaged(ctx context.Context, dir string) error {
	staging := dir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clearing staging directory: %w", err)
	}
	if err := copyTree(dir, staging); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("staging cache copy: %w", err)
	}
	if err := s.Git.Update(ctx, staging); err != nil {
		os.RemoveAll(staging)
		return err
	}

	retired := dir + ".retired"
	if err := os.RemoveAll(retired); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("clearing retired directory: %w", err)
	}
	if err := os.Rename(dir, retired); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("retiring cache directory: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		os.Rename(retired, dir)
		os.RemoveAll(staging)
		return fmt.Errorf("activating staged update: %w", err)
	}
	os.RemoveAll(retired)
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := entry.Info()
		if err != nil {
			return err
		}
		switch {
		case entry.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return os.WriteFile(target, data, info.Mode().Perm())
		default:
			return nil
		}
	})
}

// Resolve maps descriptors to their materialized directories without touching
// the network. Sources whose caches are absent (never synced, or a missing
// local path) are reported as failed outcomes and skipped; catalog builds run
// over whatever is available. Resolve takes each alias's lock before looking
// at its directory, so an in-flight sync of the same alias completes before
// the directory is handed out.
func (s *Syncer) Resolve(descs []Descriptor) ([]Synced, []Outcome, error) {
	if err := ValidateDescriptors(descs); err != nil {
		return nil, nil, err
	}

	var synced []Synced
	var failed []Outcome
	for _, desc := range descs {
		alias := desc.Alias()
		var dir string
		switch d := desc.(type) {
		case GitSource:
			dir = s.cachePath(d.Name)
		case LocalSource:
			dir = d.Path
		}
		l := s.lockFor(alias)
		l.Lock()
		err := checkLocalDir(dir)
		l.Unlock()
		if err != nil {
			failed = append(failed, Outcome{Alias: alias, Err: SyncError{Alias: alias, Err: err}})
			continue
		}
		synced = append(synced, Synced{Alias: alias, Dir: dir, FS: os.DirFS(dir)})
	}
	return synced, failed, nil
}

func checkLocalDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func dirPopulated(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}
