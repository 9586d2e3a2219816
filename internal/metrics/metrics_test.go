package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/pipeforge/internal/validate"
)

func TestObservePass(t *testing.T) {
	m := New()
	res := validate.Result{
		Errors: []validate.Issue{{Code: validate.CodeMissingJobReference}},
		Warnings: []validate.Issue{
			{Code: validate.CodeHardcodedSecret},
			{Code: validate.CodeHardcodedSecret},
		},
	}

	m.ObservePass("merged", res, 3, 20*time.Millisecond)
	m.ObservePass("updated", validate.Result{Valid: true}, 0, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues("merged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues("updated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IssuesTotal.WithLabelValues("HARDCODED_SECRET", "warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IssuesTotal.WithLabelValues("MISSING_JOB_REFERENCE", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CustomJobs))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PassDuration))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObservePass("created", validate.Result{Valid: true}, 1, time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PassesTotal.WithLabelValues("created")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObservePass("created", validate.Result{Valid: true}, 2, time.Millisecond)

	path := filepath.Join(t.TempDir(), "pipeforge.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `pipeforge_passes_total{status="created"} 1`)
	assert.Contains(t, text, "pipeforge_custom_jobs 2")
	assert.True(t, strings.Contains(text, "# HELP pipeforge_pass_duration_seconds"))

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
