package gitrepo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initRepo creates a repository on main with one commit.
func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir, repo
}

func TestOpen_FromSubdirectory(t *testing.T) {
	dir, _ := initRepo(t)
	sub := filepath.Join(dir, ".github", "workflows")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	r, err := Open(sub)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(r.Root())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpen_NotARepo(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotGitRepo)
}

func TestCurrentBranch(t *testing.T) {
	dir, repo := initRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	head, err := repo.Head()
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: head.Hash()}))

	branch, err = r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, Detached, branch)
}

func TestCurrentBranch_NoCommits(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	r, err := Open(dir)
	require.NoError(t, err)
	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Empty(t, branch)
}

func TestHasBranch(t *testing.T) {
	dir, repo := initRepo(t)
	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "develop"), head.Hash())))

	r, err := Open(dir)
	require.NoError(t, err)

	ok, err := r.HasBranch("main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasBranch("develop")
	require.NoError(t, err)
	assert.True(t, ok, "remote branches count")

	missing, err := r.MissingBranches("main", "", "develop", "release")
	require.NoError(t, err)
	assert.Equal(t, []string{"release"}, missing)
}
