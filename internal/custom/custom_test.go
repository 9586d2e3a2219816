package custom

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managed = []string{"changes", "version", "gate", "tag", "promote", "release"}

const previous = `name: CI
jobs:
  changes:
    runs-on: ubuntu-latest
  version:
    runs-on: ubuntu-latest
    outputs:
      version: ${{ steps.v.outputs.version }}

  # <--START CUSTOM JOBS-->

  # Runs the e2e suite
  e2e:
    runs-on: ubuntu-latest
    steps:
      - run: make e2e

  # <--END CUSTOM JOBS-->

  gate:
    runs-on: ubuntu-latest
`

func TestMarkers(t *testing.T) {
	tests := []struct {
		line  string
		start bool
		end   bool
	}{
		{"  # <--START CUSTOM JOBS-->", true, false},
		{"#<--START CUSTOM JOBS-->   ", true, false},
		{"    ## <--END CUSTOM JOBS-->", false, true},
		{"foo: bar # <--END CUSTOM JOBS-->", false, true},
		{"  <--START CUSTOM JOBS-->", false, false},
		{"  # <--START CUSTOM JOBS--> trailing", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.start, IsStartMarker(tt.line))
			assert.Equal(t, tt.end, IsEndMarker(tt.line))
		})
	}
	assert.True(t, IsStartMarker(StartMarker("  ")))
	assert.True(t, IsEndMarker(EndMarker("  ")))
}

func TestExtract(t *testing.T) {
	section, ok := Extract(previous)
	require.True(t, ok)
	assert.Equal(t, "  # Runs the e2e suite\n  e2e:\n    runs-on: ubuntu-latest\n    steps:\n      - run: make e2e", section)
}

func TestExtract_Degenerate(t *testing.T) {
	tests := map[string]string{
		"no markers":   "jobs:\n  a: {}\n",
		"start only":   "# <--START CUSTOM JOBS-->\njobs: {}\n",
		"end only":     "jobs: {}\n# <--END CUSTOM JOBS-->\n",
		"out of order": "# <--END CUSTOM JOBS-->\na: 1\n# <--START CUSTOM JOBS-->\n",
		"unbalanced":   "# <--START CUSTOM JOBS-->\n# <--START CUSTOM JOBS-->\n# <--END CUSTOM JOBS-->\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := Extract(text)
			assert.False(t, ok)
		})
	}
}

func TestExtract_EmptySection(t *testing.T) {
	section, ok := Extract("jobs:\n  # <--START CUSTOM JOBS-->\n\n  # <--END CUSTOM JOBS-->\n")
	require.True(t, ok)
	assert.Empty(t, section)

	_, ok = Sanitize(section, managed)
	assert.False(t, ok)
}

func TestSanitize_RemovesManagedBlocks(t *testing.T) {
	section := `  # user job
  lint:
    runs-on: ubuntu-latest


  # stale copy of a managed job
  gate:
    needs: [lint]
    steps:
      - run: echo


  e2e:
    runs-on: ubuntu-latest`

	out, ok := Sanitize(section, managed)
	require.True(t, ok)
	assert.Equal(t, "  # user job\n  lint:\n    runs-on: ubuntu-latest\n\n  e2e:\n    runs-on: ubuntu-latest", out)
	assert.Equal(t, []string{"lint", "e2e"}, SectionKeys(out))
}

func TestSanitize_OnlyManagedBecomesEmpty(t *testing.T) {
	_, ok := Sanitize("  gate:\n    runs-on: x\n  # c\n  tag:\n    runs-on: x", managed)
	assert.False(t, ok)
}

func TestSectionJobs(t *testing.T) {
	jobs := SectionJobs("    deep:\n      if: false\n    other:\n      runs-on: x")
	assert.Equal(t, []string{"deep", "other"}, yamldoc.Keys(jobs))
	cond, _ := yamldoc.ScalarValue(yamldoc.Get(jobs, "deep"), "if")
	assert.Equal(t, "false", cond)

	broken := SectionJobs("  a:\n    steps: [\n  b:\n    runs-on: x")
	assert.Equal(t, []string{"a", "b"}, yamldoc.Keys(broken))
}

func TestOrphans(t *testing.T) {
	doc, err := yamldoc.Parse([]byte(`jobs:
  changes:
    runs-on: x
  legacy:
    runs-on: x
  e2e:
    runs-on: x
  gate:
    runs-on: x
`))
	require.NoError(t, err)

	orphans := CollectOrphans(doc, managed, []string{"e2e"})
	require.Len(t, orphans, 1)
	assert.Equal(t, "legacy", orphans[0].Name())

	text, err := RenderPairs(orphans)
	require.NoError(t, err)
	assert.Equal(t, "  legacy:\n    runs-on: x", text)

	stripped := StripUnmanaged(doc, managed)
	assert.Equal(t, []string{"changes", "gate"}, yamldoc.Keys(stripped.Jobs()))
	assert.Equal(t, []string{"changes", "legacy", "e2e", "gate"}, yamldoc.Keys(doc.Jobs()))
}

func TestStripMarkers(t *testing.T) {
	doc, err := yamldoc.Parse([]byte(previous))
	require.NoError(t, err)

	out, err := StripMarkers(StripUnmanaged(doc, managed)).Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(out), StartToken)
	assert.NotContains(t, string(out), EndToken)
	assert.NotContains(t, string(out), "e2e:")
}

func TestReinsert_AfterAnchor(t *testing.T) {
	text := "jobs:\n  changes:\n    runs-on: x\n  version:\n    runs-on: x\n    outputs:\n      v: a\n\n  gate:\n    runs-on: x\n"
	out, warnings := Reinsert(text, "  e2e:\n    runs-on: x", "version", "changes")
	assert.Empty(t, warnings)
	assert.Equal(t, "jobs:\n  changes:\n    runs-on: x\n  version:\n    runs-on: x\n    outputs:\n      v: a\n\n"+
		"  # <--START CUSTOM JOBS-->\n  e2e:\n    runs-on: x\n  # <--END CUSTOM JOBS-->\n\n  gate:\n    runs-on: x\n", out)

	section, ok := Extract(out)
	require.True(t, ok)
	assert.Equal(t, "  e2e:\n    runs-on: x", section)
}

func TestReinsert_FallbackAnchor(t *testing.T) {
	text := "jobs:\n  changes:\n    runs-on: x\n  tag:\n    runs-on: x\n"
	out, warnings := Reinsert(text, "", "version", "changes")
	assert.Empty(t, warnings)
	assert.Equal(t, "jobs:\n  changes:\n    runs-on: x\n\n  # <--START CUSTOM JOBS-->\n  # <--END CUSTOM JOBS-->\n\n  tag:\n    runs-on: x\n", out)
}

func TestReinsert_NoAnchorAppendsWithWarning(t *testing.T) {
	text := "name: x\njobs:\n  build:\n    runs-on: x\n"
	out, warnings := Reinsert(text, "", "version")
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasSuffix(out, "    runs-on: x\n\n  # <--START CUSTOM JOBS-->\n  # <--END CUSTOM JOBS-->\n"))

	doc, err := yamldoc.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, yamldoc.Keys(doc.Jobs()))
}

func TestRoundTrip_ManyJobs(t *testing.T) {
	var b strings.Builder
	for i := range 50 {
		fmt.Fprintf(&b, "  custom-%02d:\n    runs-on: ubuntu-latest\n    steps:\n      - run: echo %d\n", i, i)
	}
	content := strings.TrimRight(b.String(), "\n")
	base := "jobs:\n  version:\n    runs-on: x\n\n  gate:\n    runs-on: x\n"

	text, _ := Reinsert(base, content, "version")
	for range 3 {
		section, ok := Extract(text)
		require.True(t, ok)
		section, ok = Sanitize(section, managed)
		require.True(t, ok)
		next, _ := Reinsert(base, section, "version")
		assert.Equal(t, text, next)
		text = next
	}
	assert.Len(t, SectionKeys(mustExtract(t, text)), 50)
}

func mustExtract(t *testing.T, text string) string {
	t.Helper()
	s, ok := Extract(text)
	require.True(t, ok)
	return s
}

func TestStripSectionJobs(t *testing.T) {
	text := "jobs:\n  version:\n    runs-on: x\n\n  # <--START CUSTOM JOBS-->\n  tag:\n    runs-on: self-hosted\n  e2e:\n    runs-on: x\n  # <--END CUSTOM JOBS-->\n\n  tag:\n    runs-on: x\n"
	doc, err := yamldoc.Parse([]byte(text))
	require.NoError(t, err)
	require.Equal(t, []string{"version", "tag", "e2e", "tag"}, yamldoc.Keys(doc.Jobs()))

	out := StripSectionJobs(doc, text)
	assert.Equal(t, []string{"version", "tag"}, yamldoc.Keys(out.Jobs()))
	runsOn, _ := yamldoc.ScalarValue(yamldoc.Get(out.Jobs(), "tag"), "runs-on")
	assert.Equal(t, "x", runsOn)
	assert.Len(t, yamldoc.Keys(doc.Jobs()), 4)

	unmarked := StripSectionJobs(doc, "jobs: {}\n")
	assert.Len(t, yamldoc.Keys(unmarked.Jobs()), 4)
}
