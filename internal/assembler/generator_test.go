package assembler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/pipeforge/internal/assembler"
	"github.com/fyrsmithlabs/pipeforge/internal/builders"
	"github.com/fyrsmithlabs/pipeforge/internal/hooks"
	"github.com/fyrsmithlabs/pipeforge/internal/validate"
)

type fakeScanner struct {
	issues []validate.Issue
	err    error
}

func (f fakeScanner) Scan(context.Context, []byte) ([]validate.Issue, error) {
	return f.issues, f.err
}

type fakeObserver struct {
	statuses []string
	warnings int
}

func (f *fakeObserver) ObservePass(status string, res validate.Result, _ int, _ time.Duration) {
	f.statuses = append(f.statuses, status)
	f.warnings += len(res.Warnings)
}

func newGenerator(t *testing.T) (*assembler.Generator, string, *hooks.HookManager) {
	t.Helper()
	hm := hooks.NewHookManager()
	g := &assembler.Generator{
		Options:      assembler.Options{Registry: assembler.NewRegistry("standard")},
		Hooks:        hm,
		BlockOnError: true,
	}
	return g, filepath.Join(t.TempDir(), ".github", "workflows", "ci.yml"), hm
}

func TestGenerateFile_WritesAndSkipsUnchanged(t *testing.T) {
	g, path, hm := newGenerator(t)
	obs := &fakeObserver{}
	g.Observer = obs
	var events []hooks.Event
	require.NoError(t, hm.RegisterHandler(hooks.HookAfterWrite, func(_ context.Context, e hooks.Event) error {
		events = append(events, e)
		return nil
	}))

	ops, err := builders.Build(testConfig(t))
	require.NoError(t, err)

	res, err := g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, assembler.StatusCreated, res.Status)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Output, data)
	require.Len(t, events, 1)
	assert.Equal(t, path, events[0].Path)

	again, err := g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)
	assert.False(t, again.Written)
	assert.True(t, again.Unchanged)
	assert.Len(t, events, 1)
	assert.Equal(t, []string{"created", "updated"}, obs.statuses)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestGenerateFile_KeepsFileMode(t *testing.T) {
	g, path, _ := newGenerator(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("name: old\n"), 0o600))

	ops, err := builders.Build(testConfig(t))
	require.NoError(t, err)
	res, err := g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)
	assert.Equal(t, assembler.StatusUpdated, res.Status)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestGenerateFile_BlocksOnValidationErrors(t *testing.T) {
	g, path, hm := newGenerator(t)
	failed := 0
	require.NoError(t, hm.RegisterHandler(hooks.HookValidationFailed, func(_ context.Context, e hooks.Event) error {
		failed = e.Errors
		return nil
	}))

	ops, err := builders.Build(testConfig(t))
	require.NoError(t, err)
	res, err := g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)

	broken := addCustom(t, res.Output, "  deploy:\n    needs: ghost\n    runs-on: ubuntu-latest\n")
	require.NoError(t, os.WriteFile(path, broken, 0o644))

	_, err = g.GenerateFile(context.Background(), path, ops)
	assert.ErrorIs(t, err, assembler.ErrValidationFailed)
	assert.Equal(t, 1, failed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, broken, data, "file must stay untouched")

	g.BlockOnError = false
	res, err = g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)
	assert.False(t, res.Validation.Valid)
	assert.Contains(t, res.CustomJobs, "deploy")
}

func TestGenerateFile_DryRun(t *testing.T) {
	g, path, _ := newGenerator(t)
	g.DryRun = true

	ops, err := builders.Build(testConfig(t))
	require.NoError(t, err)
	res, err := g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.NotEmpty(t, res.Output)
	assert.NoFileExists(t, path)
}

func TestGenerateFile_BeforeWriteVeto(t *testing.T) {
	g, path, hm := newGenerator(t)
	veto := errors.New("worktree dirty")
	require.NoError(t, hm.RegisterHandler(hooks.HookBeforeWrite, func(context.Context, hooks.Event) error { return veto }))

	ops, err := builders.Build(testConfig(t))
	require.NoError(t, err)
	_, err = g.GenerateFile(context.Background(), path, ops)
	assert.ErrorIs(t, err, veto)
	assert.NoFileExists(t, path)
}

func TestGenerateFile_SecretWarnings(t *testing.T) {
	g, path, _ := newGenerator(t)
	obs := &fakeObserver{}
	g.Observer = obs
	g.Scanner = fakeScanner{issues: []validate.Issue{{
		Code:    validate.CodeHardcodedSecret,
		Message: "generic-api-key",
		Line:    3,
	}}}

	ops, err := builders.Build(testConfig(t))
	require.NoError(t, err)
	res, err := g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)
	assert.True(t, res.Written, "secret findings are warnings")
	assert.Equal(t, []validate.Code{validate.CodeHardcodedSecret}, res.Validation.Codes())
	assert.Equal(t, 1, obs.warnings)

	g.Scanner = fakeScanner{err: errors.New("scanner broke")}
	res, err = g.GenerateFile(context.Background(), path, ops)
	require.NoError(t, err)
	assert.Empty(t, res.Validation.Warnings)
}
