// Package gate synthesizes the aggregate job that summarizes every job
// running before it.
//
// The jobs mapping is read in order: every job key placed before the gate
// is a prerequisite. The gate waits for all of them with always() and
// passes only when each prerequisite succeeded or was skipped, which lets
// downstream release jobs depend on a single entry.
package gate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultName is the key of the gate job.
	DefaultName = "gate"
	// DefaultBefore is the job the gate is inserted in front of.
	DefaultBefore = "tag"
	// DefaultRunsOn is the runner used when the gate has none.
	DefaultRunsOn = "ubuntu-latest"

	alwaysExpr = "always()"
)

// ErrInvalidJobs is returned when the document's jobs entry is not a mapping.
var ErrInvalidJobs = errors.New("jobs is not a mapping")

// Options configures Ensure.
type Options struct {
	// Force recomputes needs and if even when the gate already exists.
	Force  bool
	Name   string
	Before string
	RunsOn string
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Before == "" {
		o.Before = DefaultBefore
	}
	if o.RunsOn == "" {
		o.RunsOn = DefaultRunsOn
	}
	return o
}

// Result describes what Ensure did.
type Result struct {
	Created       bool
	Recomputed    bool
	Prerequisites []string
}

// Ensure returns a copy of doc holding a gate job. A new gate is placed
// right before opts.Before when that job exists and at the end otherwise.
// An existing gate keeps its position and its needs and if fields unless
// opts.Force is set; runs-on and steps are filled in when missing.
func Ensure(doc *yamldoc.Document, opts Options) (*yamldoc.Document, Result, error) {
	opts = opts.withDefaults()
	out := doc.Clone()
	root := out.Root()

	jobs := yamldoc.Get(root, "jobs")
	if yamldoc.IsNull(jobs) {
		jobs = yamldoc.NewMapping()
		yamldoc.Set(root, "jobs", jobs)
	}
	if jobs.Kind != yaml.MappingNode {
		return nil, Result{}, fmt.Errorf("ensure gate: %w", ErrInvalidJobs)
	}

	var res Result
	job := yamldoc.Get(jobs, opts.Name)
	if job == nil || job.Kind != yaml.MappingNode {
		job = yamldoc.NewMapping()
		key := yamldoc.InsertBefore(jobs, opts.Before, opts.Name, job)
		yamldoc.SetSpaceBefore(key, true)
		res.Created = true
	}

	res.Prerequisites = Prerequisites(jobs, opts.Name)
	if res.Created || opts.Force {
		yamldoc.Set(job, "needs", needsNode(res.Prerequisites))
		yamldoc.Set(job, "if", yamldoc.NewString(Condition(res.Prerequisites)))
		res.Recomputed = true
	}
	if yamldoc.IsNull(yamldoc.Get(job, "runs-on")) {
		yamldoc.Set(job, "runs-on", yamldoc.NewString(opts.RunsOn))
	}
	if yamldoc.IsNull(yamldoc.Get(job, "steps")) {
		yamldoc.Set(job, "steps", defaultSteps())
	}
	return out, res, nil
}

// Prerequisites lists the jobs declared before name, skipping statically
// disabled jobs. It also leaves out jobs that already reach name through
// needs: this narrows "every job before the gate" on purpose, since gating
// on such a job would close a cycle. Names are unique and keep declaration
// order.
func Prerequisites(jobs *yaml.Node, name string) []string {
	var (
		prereqs    []string
		seen       = map[string]bool{}
		dependents = dependentsOf(jobs, name)
	)
	for _, p := range yamldoc.Pairs(jobs) {
		if p.Name() == name {
			break
		}
		if seen[p.Name()] || dependents[p.Name()] || Disabled(p.Value) {
			continue
		}
		seen[p.Name()] = true
		prereqs = append(prereqs, p.Name())
	}
	return prereqs
}

// dependentsOf returns the jobs that reach name by following needs.
func dependentsOf(jobs *yaml.Node, name string) map[string]bool {
	needs := map[string][]string{}
	for _, p := range yamldoc.Pairs(jobs) {
		if p.Value != nil && p.Value.Kind == yaml.MappingNode {
			needs[p.Name()] = yamldoc.StringList(yamldoc.Get(p.Value, "needs"))
		}
	}

	memo := map[string]bool{}
	visiting := map[string]bool{}
	var reaches func(job string) bool
	reaches = func(job string) bool {
		if v, ok := memo[job]; ok {
			return v
		}
		if visiting[job] {
			return false
		}
		visiting[job] = true
		found := false
		for _, need := range needs[job] {
			if need == name || reaches(need) {
				found = true
				break
			}
		}
		visiting[job] = false
		memo[job] = found
		return found
	}

	out := map[string]bool{}
	for job := range needs {
		if job != name && reaches(job) {
			out[job] = true
		}
	}
	return out
}

// Disabled reports whether job's if condition is statically false.
func Disabled(job *yaml.Node) bool {
	cond, ok := yamldoc.ScalarValue(job, "if")
	if !ok {
		return false
	}
	return IsStaticFalse(cond)
}

// IsStaticFalse reports whether an if expression is the literal false,
// bare or wrapped in ${{ }}.
func IsStaticFalse(cond string) bool {
	cond = strings.TrimSpace(cond)
	if inner, ok := strings.CutPrefix(cond, "${{"); ok {
		if inner, ok = strings.CutSuffix(inner, "}}"); ok {
			cond = strings.TrimSpace(inner)
		}
	}
	return cond == "false"
}

// Condition builds the gate's if expression for prereqs.
func Condition(prereqs []string) string {
	if len(prereqs) == 0 {
		return alwaysExpr
	}
	parts := make([]string, 0, len(prereqs)+1)
	parts = append(parts, alwaysExpr)
	for _, name := range prereqs {
		parts = append(parts, fmt.Sprintf(
			"(needs['%s'].result == 'success' || needs['%s'].result == 'skipped')", name, name))
	}
	return strings.Join(parts, " && ")
}

func needsNode(prereqs []string) *yaml.Node {
	seq := yamldoc.NewSequence()
	for _, name := range prereqs {
		seq.Content = append(seq.Content, yamldoc.NewString(name))
	}
	return seq
}

func defaultSteps() *yaml.Node {
	step := yamldoc.NewMapping()
	yamldoc.Set(step, "name", yamldoc.NewString("Gate passed"))
	yamldoc.Set(step, "run", yamldoc.NewString(`echo "All upstream jobs succeeded or were skipped"`))
	return yamldoc.NewSequence(step)
}
