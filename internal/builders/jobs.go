package builders

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pipeforge/internal/assembler"
	"github.com/fyrsmithlabs/pipeforge/internal/config"
	"github.com/fyrsmithlabs/pipeforge/internal/patch"
)

// Changes detects which domains a push touched. Every domain becomes an
// output of the job.
func Changes(cfg *config.Config) ([]patch.Operation, error) {
	var t tree
	outputs := t.m()
	var filters strings.Builder
	for _, d := range cfg.Domains {
		outputs.Content = append(outputs.Content,
			t.node(d.Name), t.node(fmt.Sprintf("${{ steps.filter.outputs.%s }}", d.Name)))
		fmt.Fprintf(&filters, "%s:\n", d.Name)
		for _, p := range d.Paths {
			fmt.Fprintf(&filters, "  - '%s'\n", strings.ReplaceAll(p, "'", "''"))
		}
	}

	job := t.m(
		"runs-on", cfg.RunsOn,
		"outputs", outputs,
		"steps", t.seq(
			t.m("uses", checkoutAction),
			t.m(
				"id", "filter",
				"uses", filterAction,
				"with", t.m("filters", filters.String()),
			),
		),
	)
	if t.err != nil {
		return nil, fmt.Errorf("build %s job: %w", assembler.JobChanges, t.err)
	}
	return []patch.Operation{jobOp(assembler.JobChanges, "Detect which parts of the repository changed", job)}, nil
}

// Version computes the next version from the latest tag.
func Version(cfg *config.Config) ([]patch.Operation, error) {
	prefix := cfg.Versioning.TagPrefix
	script := fmt.Sprintf(`last=$(git describe --tags --abbrev=0 --match '%s*' 2>/dev/null || true)
if [ -z "$last" ]; then
  next="%s"
else
  next=$(echo "${last#%s}" | awk -F. '{ printf "%%d.%%d.%%d", $1, $2, $3 + 1 }')
fi
echo "version=$next" >> "$GITHUB_OUTPUT"
`, prefix, cfg.Versioning.Initial, prefix)

	var t tree
	job := t.m(
		"needs", assembler.JobChanges,
		"runs-on", cfg.RunsOn,
		"outputs", t.m("version", "${{ steps.version.outputs.version }}"),
		"steps", t.seq(
			t.m("uses", checkoutAction, "with", t.m("fetch-depth", 0)),
			t.m("id", "version", "name", "Compute next version", "run", script),
		),
	)
	if t.err != nil {
		return nil, fmt.Errorf("build %s job: %w", assembler.JobVersion, t.err)
	}
	return []patch.Operation{jobOp(assembler.JobVersion, "Compute the next release version", job)}, nil
}

// TestAffected runs the test command of every changed domain. Monorepo
// flavor only.
func TestAffected(cfg *config.Config) ([]patch.Operation, error) {
	var t tree
	include := t.seq()
	for _, d := range cfg.Domains {
		include.Content = append(include.Content, t.m("domain", d.Name, "test", d.Test))
	}

	job := t.m(
		"needs", assembler.JobChanges,
		"runs-on", cfg.RunsOn,
		"strategy", t.m(
			"fail-fast", false,
			"matrix", t.m("include", include),
		),
		"steps", t.seq(
			t.m("uses", checkoutAction),
			t.m(
				"name", "Test ${{ matrix.domain }}",
				"if", "needs.changes.outputs[matrix.domain] == 'true'",
				"run", "${{ matrix.test }}",
			),
		),
	)
	if t.err != nil {
		return nil, fmt.Errorf("build %s job: %w", assembler.JobTestAffected, t.err)
	}
	return []patch.Operation{jobOp(assembler.JobTestAffected, "Test only the domains that changed", job)}, nil
}

// Tag pushes the version tag once the gate passed on the trunk.
func Tag(cfg *config.Config) ([]patch.Operation, error) {
	tag := cfg.Versioning.TagPrefix + "${{ needs.version.outputs.version }}"

	var t tree
	job := t.m(
		"needs", t.seq(assembler.JobGate, assembler.JobVersion),
		"if", fmt.Sprintf("github.ref == 'refs/heads/%s' && (github.event_name == 'push' || inputs.release)", cfg.BranchFlow.Trunk),
		"runs-on", cfg.RunsOn,
		"outputs", t.m("tag", tag),
		"steps", t.seq(
			t.m("uses", checkoutAction),
			t.m(
				"name", "Push tag",
				"run", fmt.Sprintf("git tag %q\ngit push origin %q\n", tag, tag),
			),
		),
	)
	if t.err != nil {
		return nil, fmt.Errorf("build %s job: %w", assembler.JobTag, t.err)
	}
	return []patch.Operation{jobOp(assembler.JobTag, "Tag the release", job)}, nil
}

// Promote fast-forwards the trunk to the develop branch after the gate
// passed there.
func Promote(cfg *config.Config) ([]patch.Operation, error) {
	var t tree
	job := t.m(
		"needs", assembler.JobGate,
		"if", fmt.Sprintf("github.event_name == 'push' && github.ref == 'refs/heads/%s'", cfg.BranchFlow.Develop),
		"runs-on", cfg.RunsOn,
		"steps", t.seq(
			t.m("uses", checkoutAction, "with", t.m("fetch-depth", 0)),
			t.m(
				"name", fmt.Sprintf("Promote %s to %s", cfg.BranchFlow.Develop, cfg.BranchFlow.Trunk),
				"run", fmt.Sprintf("git push origin HEAD:%s\n", cfg.BranchFlow.Trunk),
			),
		),
	)
	if t.err != nil {
		return nil, fmt.Errorf("build %s job: %w", assembler.JobPromote, t.err)
	}
	return []patch.Operation{jobOp(assembler.JobPromote, "Promote the integration branch", job)}, nil
}

// Release publishes a release for the tag.
func Release(cfg *config.Config) ([]patch.Operation, error) {
	var t tree
	job := t.m(
		"needs", t.seq(assembler.JobTag),
		"runs-on", cfg.RunsOn,
		"steps", t.seq(
			t.m("uses", checkoutAction),
			t.m(
				"name", "Publish release",
				"env", t.m("GH_TOKEN", "${{ github.token }}"),
				"run", "gh release create \"${{ needs.tag.outputs.tag }}\" --generate-notes\n",
			),
		),
	)
	if t.err != nil {
		return nil, fmt.Errorf("build %s job: %w", assembler.JobRelease, t.err)
	}
	return []patch.Operation{jobOp(assembler.JobRelease, "Publish the release", job)}, nil
}
