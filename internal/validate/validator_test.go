package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CycleExactness(t *testing.T) {
	res := Validate([]byte(`jobs:
  a:
    needs: c
  b:
    needs: a
  c:
    needs: b
`))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)

	issue := res.Errors[0]
	assert.Equal(t, CodeCircularDependency, issue.Code)
	assert.Equal(t, "circular dependency: a → c → b → a", issue.Message)
	assert.Equal(t, "jobs.a.needs", issue.Location)
	assert.Equal(t, 2, issue.Line)
}

func TestValidate_SelfNeedIsCycle(t *testing.T) {
	res := Validate([]byte("jobs:\n  solo:\n    needs: [solo]\n"))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeCircularDependency, res.Errors[0].Code)
	assert.Equal(t, "circular dependency: solo → solo", res.Errors[0].Message)
}

func TestValidate_DistinctCycles(t *testing.T) {
	res := Validate([]byte(`jobs:
  a:
    needs: [b]
  b:
    needs: [a, c]
  c:
    needs: [d]
  d:
    needs: [c]
`))
	assert.Equal(t, map[Code]int{CodeCircularDependency: 2}, res.Counts())
}

func TestValidate_MissingReferenceExactness(t *testing.T) {
	res := Validate([]byte(`jobs:
  build:
    needs: []
  deploy:
    needs: [build, ghost, ghost]
`))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	issue := res.Errors[0]
	assert.Equal(t, CodeMissingJobReference, issue.Code)
	assert.Contains(t, issue.Message, "deploy")
	assert.Contains(t, issue.Message, "ghost")
	assert.Equal(t, "jobs.deploy.needs", issue.Location)
}

func TestValidate_OutputReferences(t *testing.T) {
	res := Validate([]byte(`jobs:
  version:
    outputs:
      v: ${{ steps.v.outputs.version }}
  tag:
    needs: version
    if: needs.version.outputs.v != ''
    steps:
      - run: echo ${{ needs.version.outputs.v }} ${{ needs.vers.outputs.v }}
      - run: echo ${{ needs['missing'].outputs.x }} ${{ needs.vers.outputs.other }}
`))
	require.Len(t, res.Errors, 2)
	for _, issue := range res.Errors {
		assert.Equal(t, CodeInvalidOutputReference, issue.Code)
		assert.Equal(t, "jobs.tag", issue.Location)
	}
	assert.Contains(t, res.Errors[0].Message, `"vers"`)
	assert.Contains(t, res.Errors[1].Message, `"missing"`)
}

func TestValidate_Warnings(t *testing.T) {
	res := Validate([]byte(`jobs:
  off:
    if: ${{ false }}
  loop:
    if: needs.loop.result == 'success'
  fine:
    if: always()
`))
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, CodeUnreachableJob, res.Warnings[0].Code)
	assert.Equal(t, "jobs.off.if", res.Warnings[0].Location)
	assert.Equal(t, CodeSelfReferencing, res.Warnings[1].Code)
}

func TestValidate_ParseError(t *testing.T) {
	res := Validate([]byte("jobs:\n  a: [\n"))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeParseError, res.Errors[0].Code)
	assert.Empty(t, res.Warnings)

	res = Validate([]byte("- not\n- a mapping\n"))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, CodeParseError, res.Errors[0].Code)
}

func TestValidate_CleanGraph(t *testing.T) {
	res := Validate([]byte(`jobs:
  changes: {}
  version:
    needs: changes
  gate:
    needs: [changes, version]
    if: always() && (needs['version'].result == 'success' || needs['version'].result == 'skipped')
  tag:
    needs: gate
`))
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestResult_WithWarnings(t *testing.T) {
	res := Result{Valid: true}
	out := res.WithWarnings(Issue{Code: CodeHardcodedSecret, Message: "x"})
	assert.Empty(t, res.Warnings)
	assert.Len(t, out.Warnings, 1)
	assert.True(t, out.Valid)
	assert.Equal(t, []Code{CodeHardcodedSecret}, out.Codes())
}
