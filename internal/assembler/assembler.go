// Package assembler reconciles a generated pipeline with its previous
// version.
//
// A pass takes the previous output (if any) and the operations produced by
// the builders. Managed jobs are patched in place, the gate is recomputed
// over the final job order, and custom jobs are carried over as raw text
// between the custom markers. Custom text is never re-encoded, so user
// formatting survives any number of regenerations.
package assembler

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/pipeforge/internal/config"
	"github.com/fyrsmithlabs/pipeforge/internal/custom"
	"github.com/fyrsmithlabs/pipeforge/internal/gate"
	"github.com/fyrsmithlabs/pipeforge/internal/logging"
	"github.com/fyrsmithlabs/pipeforge/internal/patch"
	"github.com/fyrsmithlabs/pipeforge/internal/validate"
	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
)

// Options configures a reconciliation pass.
type Options struct {
	// Registry defaults to the standard flavor.
	Registry Registry
	// ForceGate recomputes the gate's needs and if even when the previous
	// output already had a gate.
	ForceGate  bool
	GateRunsOn string
}

// Result is the outcome of one pass.
type Result struct {
	Output     []byte
	Status     Status
	Validation validate.Result
	// Warnings are recoverable problems: an unparsable previous file or a
	// missing anchor job.
	Warnings   []string
	CustomJobs []string
	Gate       gate.Result
	Report     *patch.Report
}

// Changed reports whether the output differs from previous.
func (r *Result) Changed(previous []byte) bool {
	return !bytes.Equal(r.Output, previous)
}

// Reconcile produces the next version of a pipeline. previous may be nil.
// The only error is a structural conflict in ops; every problem with the
// previous text degrades to a warning.
func Reconcile(ctx context.Context, previous []byte, ops []patch.Operation, opts Options) (*Result, error) {
	log := logging.FromContext(ctx).Named("assembler")
	reg := opts.Registry
	if len(reg.names) == 0 {
		reg = NewRegistry(config.FlavorStandard)
	}
	managed := Reserved()

	res := &Result{Status: StatusCreated}
	base := yamldoc.New()
	var (
		content   string
		forceGate = opts.ForceGate
	)

	if len(bytes.TrimSpace(previous)) > 0 {
		section := extractSection(string(previous), managed)
		prev, err := yamldoc.Parse(previous)
		if err != nil {
			res.Status = StatusRebuilt
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("previous pipeline could not be parsed and was rebuilt: %v", err))
			log.Warn(ctx, "previous pipeline unparsable, rebuilding", zap.Error(err))
			content = section
		} else {
			res.Status = StatusUpdated
			prev = custom.StripSectionJobs(prev, string(previous))
			orphans := custom.CollectOrphans(prev, managed, custom.SectionKeys(section))
			rendered, err := custom.RenderPairs(orphans)
			if err != nil {
				return nil, fmt.Errorf("render custom jobs: %w", err)
			}
			if len(orphans) > 0 {
				log.Info(ctx, "moving custom jobs into the custom section",
					zap.Int("count", len(orphans)))
			}
			content = custom.Compose(section, rendered)
			active := activeJobs(reg, ops)
			if dropped := droppedJobs(prev, active); len(dropped) > 0 {
				log.Info(ctx, "removing managed jobs no longer generated", zap.Strings("jobs", dropped))
				forceGate = true
			}
			base = custom.StripMarkers(custom.StripUnmanaged(prev, active))
		}
	}

	ops, held := skipUnderUserShapes(base, ops)
	if len(held) > 0 {
		log.Info(ctx, "keeping hand-written shorthand, skipping refinements",
			zap.Stringers("operations", held))
	}

	patched, report, err := patch.ApplyWithReport(base, ops)
	if err != nil {
		return nil, fmt.Errorf("apply operations: %w", err)
	}
	res.Report = report
	logReport(ctx, log, report)

	customJobs := yamldoc.NewMapping()
	if content != "" {
		customJobs = custom.SectionJobs(content)
	}
	res.CustomJobs = yamldoc.Keys(customJobs)

	gated, gres, err := ensureGate(patched, customJobs, reg.anchors(), gate.Options{
		Force:  forceGate,
		RunsOn: opts.GateRunsOn,
	})
	if err != nil {
		return nil, err
	}
	res.Gate = gres
	log.Debug(ctx, "gate ensured",
		zap.Bool("created", gres.Created),
		zap.Bool("recomputed", gres.Recomputed),
		zap.Strings("needs", gres.Prerequisites))

	encoded, err := gated.Encode()
	if err != nil {
		return nil, err
	}
	text, warnings := custom.Reinsert(string(encoded), content, reg.anchors()...)
	for _, w := range warnings {
		log.Warn(ctx, w)
	}
	res.Warnings = append(res.Warnings, warnings...)
	res.Output = []byte(text)

	if res.Status == StatusUpdated && content != "" {
		res.Status = StatusMerged
	}
	res.Validation = validate.Validate(res.Output)

	log.Info(ctx, "pipeline reconciled",
		zap.String("status", string(res.Status)),
		zap.Int("custom_jobs", len(res.CustomJobs)),
		zap.Int("errors", len(res.Validation.Errors)),
		zap.Int("warnings", len(res.Validation.Warnings)))
	return res, nil
}

// activeJobs lists the managed jobs that ops still produce, plus the gate.
// Managed jobs missing from the list are dropped from the previous output.
func activeJobs(reg Registry, ops []patch.Operation) []string {
	active := []string{JobGate}
	for _, op := range ops {
		segments, err := yamldoc.ParsePath(op.Path)
		if err != nil || len(segments) < 2 || segments[0] != "jobs" {
			continue
		}
		if reg.IsManaged(segments[1]) && !slices.Contains(active, segments[1]) {
			active = append(active, segments[1])
		}
	}
	return active
}

// droppedJobs lists managed jobs of prev that are not active anymore.
func droppedJobs(prev *yamldoc.Document, active []string) []string {
	var dropped []string
	for _, name := range yamldoc.Keys(prev.Jobs()) {
		if reserved.IsManaged(name) && !slices.Contains(active, name) {
			dropped = append(dropped, name)
		}
	}
	return dropped
}

// skipUnderUserShapes drops operations below a preserved path whose
// existing node is a scalar or sequence, such as `on: push`. Preserved
// content belongs to the user, so its shape wins over later refinements.
func skipUnderUserShapes(doc *yamldoc.Document, ops []patch.Operation) ([]patch.Operation, []patch.Operation) {
	var locked [][]string
	for _, op := range ops {
		if op.Policy != patch.PolicyPreserve {
			continue
		}
		segments, err := yamldoc.ParsePath(op.Path)
		if err != nil {
			continue
		}
		n := lookup(doc.Root(), segments)
		if n != nil && !yamldoc.IsNull(n) && n.Kind != yaml.MappingNode {
			locked = append(locked, segments)
		}
	}
	if len(locked) == 0 {
		return ops, nil
	}

	var kept, held []patch.Operation
	for _, op := range ops {
		if below(op.Path, locked) {
			held = append(held, op)
			continue
		}
		kept = append(kept, op)
	}
	return kept, held
}

func below(path string, locked [][]string) bool {
	segments, err := yamldoc.ParsePath(path)
	if err != nil {
		return false
	}
	for _, l := range locked {
		if len(segments) > len(l) && slices.Equal(segments[:len(l)], l) {
			return true
		}
	}
	return false
}

func lookup(root *yaml.Node, segments []string) *yaml.Node {
	n := root
	for _, s := range segments {
		if n == nil || n.Kind != yaml.MappingNode {
			return nil
		}
		n = yamldoc.Get(n, s)
	}
	return n
}

// extractSection returns the sanitized custom section of text, or "".
func extractSection(text string, managed []string) string {
	section, ok := custom.Extract(text)
	if !ok {
		return ""
	}
	section, ok = custom.Sanitize(section, managed)
	if !ok {
		return ""
	}
	return section
}

// ensureGate runs the gate synthesizer with the custom jobs placed where
// the custom section will be reinserted, so they count as prerequisites,
// then takes them out again.
func ensureGate(doc *yamldoc.Document, customJobs *yaml.Node, anchors []string, opts gate.Options) (*yamldoc.Document, gate.Result, error) {
	work := doc.Clone()
	spliced := yamldoc.Keys(customJobs)
	if len(spliced) > 0 {
		if yamldoc.IsNull(yamldoc.Get(work.Root(), "jobs")) {
			yamldoc.Set(work.Root(), "jobs", yamldoc.NewMapping())
		}
		if jobs := work.Jobs(); jobs != nil {
			at := len(jobs.Content)
			for _, a := range anchors {
				if i := yamldoc.Index(jobs, a); i >= 0 {
					at = 2 * (i + 1)
					break
				}
			}
			items := make([]*yaml.Node, 0, len(customJobs.Content))
			for _, n := range customJobs.Content {
				items = append(items, yamldoc.Clone(n))
			}
			jobs.Content = slices.Insert(jobs.Content, at, items...)
		}
	}

	out, res, err := gate.Ensure(work, opts)
	if err != nil {
		return nil, gate.Result{}, err
	}
	if jobs := out.Jobs(); jobs != nil {
		for _, name := range spliced {
			yamldoc.Delete(jobs, name)
		}
	}
	return out, res, nil
}

func logReport(ctx context.Context, log *logging.Logger, report *patch.Report) {
	log.Debug(ctx, "operations applied",
		zap.Int("created", report.Count(patch.OutcomeCreated)),
		zap.Int("updated", report.Count(patch.OutcomeUpdated)),
		zap.Int("unchanged", report.Count(patch.OutcomeUnchanged)),
		zap.Int("skipped", report.Count(patch.OutcomeSkipped)))
	if !log.Enabled(logging.TraceLevel) {
		return
	}
	for _, o := range report.Outcomes {
		log.Trace(ctx, "operation", zap.Stringer("op", o.Operation), zap.String("outcome", string(o.Outcome)))
	}
}
