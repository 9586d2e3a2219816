// Package gitrepo inspects the Git repository a pipeline is generated in.
//
// The generator uses it to resolve the repository root, which is where the
// config file and the workflow output live, and to check that the branches
// named by the branch flow exist.
package gitrepo

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotGitRepo indicates no repository was found at or above a directory.
var ErrNotGitRepo = errors.New("not a git repository")

// Detached is returned by CurrentBranch when HEAD is not on a branch.
const Detached = "detached"

// Repo is an opened repository.
type Repo struct {
	repo *git.Repository
	root string
}

// Open finds the repository containing dir, walking up parent directories.
func Open(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, abs)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	root := abs
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	return &Repo{repo: repo, root: root}, nil
}

// Root is the top-level directory of the working tree.
func (r *Repo) Root() string {
	return r.root
}

// CurrentBranch returns the short name of the checked out branch, Detached
// for a detached HEAD, or "" for a repository without commits.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return Detached, nil
	}
	return head.Name().Short(), nil
}

// HasBranch reports whether name exists as a local branch or as a branch
// of the origin remote.
func (r *Repo) HasBranch(name string) (bool, error) {
	for _, ref := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(name),
		plumbing.NewRemoteReferenceName("origin", name),
	} {
		_, err := r.repo.Reference(ref, false)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, fmt.Errorf("lookup %s: %w", ref, err)
		}
	}
	return false, nil
}

// MissingBranches returns the names among branches that HasBranch does not
// find. Empty names are ignored.
func (r *Repo) MissingBranches(branches ...string) ([]string, error) {
	var missing []string
	for _, b := range branches {
		if b == "" {
			continue
		}
		ok, err := r.HasBranch(b)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, b)
		}
	}
	return missing, nil
}
