package builders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/pipeforge/internal/config"
	"github.com/fyrsmithlabs/pipeforge/internal/patch"
	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.Domains = []config.DomainConfig{
		{Name: "api", Paths: []string{"services/api/**"}, Test: "go test ./services/api/..."},
		{Name: "web", Paths: []string{"web/**", "docs/it's.md"}, Test: "npm test --prefix web"},
	}
	return cfg
}

// jobNames lists the job paths touched by ops in order.
func jobNames(ops []patch.Operation) []string {
	var names []string
	for _, op := range ops {
		if name, ok := strings.CutPrefix(op.Path, "jobs."); ok {
			names = append(names, name)
		}
	}
	return names
}

func TestBuild_NoConfig(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestBuild_JobOrder(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   []string
	}{
		{
			name: "standard",
			want: []string{"changes", "version", "tag", "promote", "release"},
		},
		{
			name:   "monorepo",
			modify: func(c *config.Config) { c.Flavor = config.FlavorMonorepo },
			want:   []string{"changes", "version", "test-affected", "tag", "promote", "release"},
		},
		{
			name:   "no develop branch",
			modify: func(c *config.Config) { c.BranchFlow.Develop = "" },
			want:   []string{"changes", "version", "tag", "release"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			if tt.modify != nil {
				tt.modify(cfg)
			}
			ops, err := Build(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, jobNames(ops))
			for _, op := range ops {
				if strings.HasPrefix(op.Path, "jobs.") {
					assert.Equal(t, patch.PolicyOverwrite, op.Policy, op.Path)
					assert.True(t, op.SpaceBefore, op.Path)
					assert.NotEmpty(t, op.CommentBefore, op.Path)
				}
			}
		})
	}
}

func TestHeader(t *testing.T) {
	cfg := testConfig(t)
	cfg.BranchFlow.Branches = []string{"release/*", "main"}

	ops, err := Header(cfg)
	require.NoError(t, err)

	byPath := map[string]patch.Operation{}
	for _, op := range ops {
		byPath[op.Path] = op
	}

	name := byPath["name"]
	assert.Equal(t, patch.PolicyOverwrite, name.Policy)
	assert.Equal(t, headerComment, name.CommentBefore)

	push := byPath["on.push.branches"]
	assert.Equal(t, patch.PolicyMerge, push.Policy)
	assert.True(t, push.Required)
	n, err := push.Value.Node()
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "develop", "release/*"}, scalarsOf(n))

	pr, err := byPath["on.pull_request.branches"].Value.Node()
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "develop"}, scalarsOf(pr))

	for _, path := range []string{"on", "permissions", "concurrency", "jobs"} {
		assert.Equal(t, patch.PolicyPreserve, byPath[path].Policy, path)
	}
}

func TestChanges_Filters(t *testing.T) {
	ops, err := Changes(testConfig(t))
	require.NoError(t, err)
	require.Len(t, ops, 1)

	job, err := ops[0].Value.Node()
	require.NoError(t, err)

	outputs := yamldoc.Get(job, "outputs")
	assert.Equal(t, []string{"api", "web"}, yamldoc.Keys(outputs))
	assert.Equal(t, "${{ steps.filter.outputs.api }}", yamldoc.Get(outputs, "api").Value)

	steps := yamldoc.Get(job, "steps")
	require.Len(t, steps.Content, 2)
	filters := yamldoc.Get(yamldoc.Get(steps.Content[1], "with"), "filters").Value
	assert.Equal(t, "api:\n  - 'services/api/**'\nweb:\n  - 'web/**'\n  - 'docs/it''s.md'\n", filters)
}

func TestVersion_UsesTagPrefix(t *testing.T) {
	cfg := testConfig(t)
	cfg.Versioning.TagPrefix = "release-"
	cfg.Versioning.Initial = "1.0.0"

	ops, err := Version(cfg)
	require.NoError(t, err)
	job, err := ops[0].Value.Node()
	require.NoError(t, err)

	assert.Equal(t, "changes", yamldoc.Get(job, "needs").Value)
	run := yamldoc.Get(yamldoc.Get(job, "steps").Content[1], "run").Value
	assert.Contains(t, run, "--match 'release-*'")
	assert.Contains(t, run, `next="1.0.0"`)
	assert.Contains(t, run, `${last#release-}`)
	assert.Contains(t, run, `printf "%d.%d.%d"`)
}

func TestTestAffected_Matrix(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flavor = config.FlavorMonorepo

	ops, err := TestAffected(cfg)
	require.NoError(t, err)
	job, err := ops[0].Value.Node()
	require.NoError(t, err)

	include := yamldoc.Get(yamldoc.Get(yamldoc.Get(job, "strategy"), "matrix"), "include")
	require.Len(t, include.Content, 2)
	assert.Equal(t, "web", yamldoc.Get(include.Content[1], "domain").Value)
	assert.Equal(t, "npm test --prefix web", yamldoc.Get(include.Content[1], "test").Value)
}

func TestTagAndPromote_Conditions(t *testing.T) {
	cfg := testConfig(t)
	cfg.BranchFlow.Trunk = "trunk"
	cfg.BranchFlow.Develop = "next"

	ops, err := Tag(cfg)
	require.NoError(t, err)
	tag, err := ops[0].Value.Node()
	require.NoError(t, err)
	assert.Equal(t, []string{"gate", "version"}, scalarsOf(yamldoc.Get(tag, "needs")))
	assert.Contains(t, yamldoc.Get(tag, "if").Value, "refs/heads/trunk")

	ops, err = Promote(cfg)
	require.NoError(t, err)
	promote, err := ops[0].Value.Node()
	require.NoError(t, err)
	assert.Equal(t, "gate", yamldoc.Get(promote, "needs").Value)
	assert.Contains(t, yamldoc.Get(promote, "if").Value, "refs/heads/next")
	run := yamldoc.Get(yamldoc.Get(promote, "steps").Content[1], "run").Value
	assert.Equal(t, "git push origin HEAD:trunk\n", run)
}

func TestTree_KeepsFirstError(t *testing.T) {
	var tr tree
	tr.m("dangling")
	tr.m(42, "value")
	require.Error(t, tr.err)
	assert.Contains(t, tr.err.Error(), "odd number")
}

func scalarsOf(n *yaml.Node) []string {
	var out []string
	for _, c := range n.Content {
		out = append(out, c.Value)
	}
	return out
}
