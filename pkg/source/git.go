package source

import (
	"context"
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// ErrNotRepository reports that a cache directory exists but does not hold a
// usable git repository. The syncer treats this as a corrupt cache and falls
// back to a fresh clone.
var ErrNotRepository = errors.New("not a usable git repository")

// GitClient is the narrow surface the syncer needs from git. It exists so
// catalog and render paths stay testable without network access; tests
// substitute an in-memory implementation.
type GitClient interface {
	// Clone creates a full clone of url at dir. dir must not already hold a
	// repository.
	Clone(ctx context.Context, dir, url string) error
	// Update fetches the default branch from origin and fast-forwards the
	// local checkout. A diverged local branch is an error; Update never
	// merges. Returns an error wrapping [ErrNotRepository] when dir cannot
	// be opened as a repository. Update mutates dir in place; the syncer
	// only ever calls it on a staged copy of the cache, so an interrupted
	// pull never reaches the live directory.
	Update(ctx context.Context, dir string) error
}

type goGitClient struct{}

// NewGitClient returns a GitClient backed by go-git. Credentials for private
// remotes come from the ambient git configuration (credential helpers, ssh
// agent); the client adds nothing of its own.
func NewGitClient() GitClient { return goGitClient{} }

func (goGitClient) Clone(ctx context.Context, dir, url string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: url})
	if err != nil {
		return fmt.Errorf("cloning %s: %w", url, err)
	}
	return nil
}

func (goGitClient) Update(ctx context.Context, dir string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("opening repository at %s: %w (%w)", dir, err, ErrNotRepository)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree at %s: %w (%w)", dir, err, ErrNotRepository)
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("updating repository at %s: %w", dir, err)
	}
	return nil
}
