package assembler

import "github.com/fyrsmithlabs/pipeforge/internal/config"

// Managed job names.
const (
	JobChanges      = "changes"
	JobVersion      = "version"
	JobTestAffected = "test-affected"
	JobGate         = "gate"
	JobTag          = "tag"
	JobPromote      = "promote"
	JobRelease      = "release"
)

// Registry is the set of job names the generator owns. Every other entry
// under jobs is a custom job.
type Registry struct {
	names []string
	index map[string]bool
}

// NewRegistry returns the registry for a pipeline flavor. The monorepo
// flavor owns the aggregate test job as well.
func NewRegistry(flavor string) Registry {
	names := []string{JobChanges, JobVersion, JobGate, JobTag, JobPromote, JobRelease}
	if flavor == config.FlavorMonorepo {
		names = []string{JobChanges, JobVersion, JobTestAffected, JobGate, JobTag, JobPromote, JobRelease}
	}
	return newRegistry(names...)
}

func newRegistry(names ...string) Registry {
	r := Registry{index: make(map[string]bool, len(names))}
	for _, n := range names {
		if !r.index[n] {
			r.index[n] = true
			r.names = append(r.names, n)
		}
	}
	return r
}

// Managed returns the managed names in pipeline order.
func (r Registry) Managed() []string {
	return append([]string(nil), r.names...)
}

// IsManaged reports whether name is owned by the generator.
func (r Registry) IsManaged(name string) bool {
	return r.index[name]
}

// reserved holds the managed names of every flavor. A reserved job that
// the current flavor does not generate is removed rather than kept as a
// custom job.
var reserved = newRegistry(JobChanges, JobVersion, JobTestAffected, JobGate, JobTag, JobPromote, JobRelease)

// Reserved returns the job names managed by any flavor.
func Reserved() []string {
	return reserved.Managed()
}

// anchors are the jobs the custom section follows, in order of preference.
func (r Registry) anchors() []string {
	var out []string
	for _, n := range []string{JobVersion, JobChanges} {
		if r.IsManaged(n) {
			out = append(out, n)
		}
	}
	return out
}
