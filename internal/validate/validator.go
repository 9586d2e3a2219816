// Package validate statically checks the job dependency graph of a
// pipeline definition.
//
// Validation never fails: every finding is reported as an Issue, and the
// caller decides whether errors block further processing.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/pipeforge/internal/gate"
	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
)

var outputRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`needs\.([A-Za-z0-9_-]+)\.outputs\b`),
	regexp.MustCompile(`needs\[\s*['"]([A-Za-z0-9_-]+)['"]\s*\]\.outputs\b`),
}

// Validate parses data and checks its job graph. Unparsable input yields a
// single PARSE_ERROR.
func Validate(data []byte) Result {
	doc, err := yamldoc.Parse(data)
	if err != nil {
		var c collector
		c.errorf(CodeParseError, "", 0, "cannot parse pipeline: %v", err)
		return c.result()
	}
	return ValidateDocument(doc)
}

// ValidateDocument checks the job graph of doc.
func ValidateDocument(doc *yamldoc.Document) Result {
	var c collector
	g := buildGraph(doc.Jobs())

	for _, cycle := range g.cycles() {
		head := g.index[cycle[0]]
		c.errorf(CodeCircularDependency, needsLocation(head.name), head.line,
			"circular dependency: %s", strings.Join(cycle, " → "))
	}

	for _, j := range g.jobs {
		for _, need := range j.needs {
			if !g.has(need) {
				c.errorf(CodeMissingJobReference, needsLocation(j.name), j.line,
					"job %q needs %q, which is not defined", j.name, need)
			}
		}
		checkOutputRefs(&c, g, j)
		checkCondition(&c, j)
	}
	return c.result()
}

func checkOutputRefs(c *collector, g *graph, j *job) {
	reported := map[string]bool{}
	for _, text := range scalars(j.body) {
		for _, re := range outputRefPatterns {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				ref := m[1]
				if g.has(ref) || reported[ref] {
					continue
				}
				reported[ref] = true
				c.errorf(CodeInvalidOutputReference, jobLocation(j.name), j.line,
					"job %q references outputs of %q, which is not defined", j.name, ref)
			}
		}
	}
}

func checkCondition(c *collector, j *job) {
	if j.cond == "" {
		return
	}
	if gate.IsStaticFalse(j.cond) {
		c.warnf(CodeUnreachableJob, condLocation(j.name), j.line,
			"job %q is disabled by a literal false condition", j.name)
		return
	}
	if referencesSelf(j.cond, j.name) {
		c.warnf(CodeSelfReferencing, condLocation(j.name), j.line,
			"condition of job %q references its own result", j.name)
	}
}

func referencesSelf(cond, name string) bool {
	for _, form := range []string{
		fmt.Sprintf("needs.%s.", name),
		fmt.Sprintf("needs['%s']", name),
		fmt.Sprintf(`needs["%s"]`, name),
	} {
		if strings.Contains(cond, form) {
			return true
		}
	}
	return false
}

func jobLocation(name string) string   { return yamldoc.JoinPath("jobs", name) }
func needsLocation(name string) string { return yamldoc.JoinPath("jobs", name, "needs") }
func condLocation(name string) string  { return yamldoc.JoinPath("jobs", name, "if") }
