// Package patch applies declarative path operations to a document.
//
// Apply never mutates its input. Operations run in order against a clone;
// the first failing operation aborts the pass and no document is returned,
// so callers never observe a partially patched tree.
package patch

import (
	"fmt"

	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// Outcome records what happened to one operation.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
)

// Report lists the outcome of each applied operation in order.
type Report struct {
	Outcomes []OperationOutcome
}

// OperationOutcome pairs an operation with its outcome.
type OperationOutcome struct {
	Operation Operation
	Outcome   Outcome
}

// Count returns the number of operations with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, oc := range r.Outcomes {
		if oc.Outcome == o {
			n++
		}
	}
	return n
}

// Skipped returns the operations skipped for a missing parent.
func (r *Report) Skipped() []Operation {
	var ops []Operation
	for _, oc := range r.Outcomes {
		if oc.Outcome == OutcomeSkipped {
			ops = append(ops, oc.Operation)
		}
	}
	return ops
}

// Apply runs ops against a copy of doc.
func Apply(doc *yamldoc.Document, ops []Operation) (*yamldoc.Document, error) {
	out, _, err := ApplyWithReport(doc, ops)
	return out, err
}

// ApplyWithReport is Apply that also reports per-operation outcomes.
func ApplyWithReport(doc *yamldoc.Document, ops []Operation) (*yamldoc.Document, *Report, error) {
	if doc == nil {
		doc = yamldoc.New()
	}
	out := doc.Clone()
	report := &Report{Outcomes: make([]OperationOutcome, 0, len(ops))}
	for i, op := range ops {
		outcome, err := applyOne(out.Root(), op)
		if err != nil {
			return nil, nil, fmt.Errorf("operation %d (%s): %w", i, op, err)
		}
		report.Outcomes = append(report.Outcomes, OperationOutcome{Operation: op, Outcome: outcome})
	}
	return out, report, nil
}

func applyOne(root *yaml.Node, op Operation) (Outcome, error) {
	if !op.Policy.Valid() {
		return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidOperation, op.Policy)
	}
	segments, err := yamldoc.ParsePath(op.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	create := op.Required || op.Policy == PolicyOverwrite || op.Policy == PolicyPreserve
	parent, err := descend(root, segments[:len(segments)-1], create, op)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return OutcomeSkipped, nil
	}

	value, err := op.Value.Node()
	if err != nil {
		return "", err
	}

	key := segments[len(segments)-1]
	existing := yamldoc.Get(parent, key)
	absent := yamldoc.IsNull(existing)

	var outcome Outcome
	switch op.Policy {
	case PolicySet:
		outcome = applySet(parent, key, existing, value)
	case PolicyMerge:
		outcome, err = applyMerge(parent, key, existing, value, op)
	case PolicyOverwrite:
		yamldoc.Set(parent, key, value)
		outcome = OutcomeUpdated
		if absent {
			outcome = OutcomeCreated
		}
	case PolicyPreserve:
		outcome = OutcomeUnchanged
		if absent {
			yamldoc.Set(parent, key, value)
			outcome = OutcomeCreated
		}
	}
	if err != nil {
		return "", err
	}

	annotate(yamldoc.KeyNode(parent, key), op, outcome)
	return outcome, nil
}

// descend walks to the mapping holding the final path segment. Absent or
// null ancestors become mappings when create is set; otherwise descend
// returns nil so the operation is skipped.
func descend(root *yaml.Node, segments []string, create bool, op Operation) (*yaml.Node, error) {
	cur := root
	for i, seg := range segments {
		next := yamldoc.Get(cur, seg)
		if yamldoc.IsNull(next) {
			if !create {
				return nil, nil
			}
			next = yamldoc.NewMapping()
			yamldoc.Set(cur, seg, next)
		}
		if next.Kind != yaml.MappingNode {
			return nil, &ConflictError{
				Path:   op.Path,
				At:     yamldoc.JoinPath(segments[:i+1]...),
				Found:  kindName(next),
				Policy: op.Policy,
			}
		}
		cur = next
	}
	return cur, nil
}

func applySet(parent *yaml.Node, key string, existing, value *yaml.Node) Outcome {
	if yamldoc.IsNull(existing) {
		yamldoc.Set(parent, key, value)
		return OutcomeCreated
	}
	if existing.Kind != yaml.MappingNode || value.Kind != yaml.MappingNode {
		return OutcomeUnchanged
	}
	added := false
	for _, p := range yamldoc.Pairs(value) {
		if yamldoc.Index(existing, p.Name()) >= 0 {
			continue
		}
		existing.Content = append(existing.Content, p.Key, p.Value)
		added = true
	}
	if added {
		return OutcomeUpdated
	}
	return OutcomeUnchanged
}

func applyMerge(parent *yaml.Node, key string, existing, value *yaml.Node, op Operation) (Outcome, error) {
	items := []*yaml.Node{value}
	if value.Kind == yaml.SequenceNode {
		items = value.Content
	}

	if yamldoc.IsNull(existing) {
		seq := yamldoc.NewSequence()
		seq.Content = appendUnique(nil, items)
		yamldoc.Set(parent, key, seq)
		return OutcomeCreated, nil
	}
	if existing.Kind != yaml.SequenceNode {
		return "", &ConflictError{
			Path:   op.Path,
			At:     op.Path,
			Found:  kindName(existing),
			Policy: op.Policy,
		}
	}
	before := len(existing.Content)
	existing.Content = appendUnique(existing.Content, items)
	if len(existing.Content) == before {
		return OutcomeUnchanged, nil
	}
	return OutcomeUpdated, nil
}

func appendUnique(dst, items []*yaml.Node) []*yaml.Node {
	for _, item := range items {
		dup := false
		for _, have := range dst {
			if yamldoc.Equal(have, item) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, item)
		}
	}
	return dst
}

// annotate attaches the operation's comment and blank line to the target
// key. Existing comments survive everything but overwrite, and preserve
// never touches an entry it did not create.
func annotate(key *yaml.Node, op Operation, outcome Outcome) {
	if key == nil || outcome == OutcomeSkipped {
		return
	}
	if op.Policy == PolicyOverwrite {
		if op.CommentBefore != "" {
			yamldoc.SetCommentBefore(key, op.CommentBefore)
		}
		yamldoc.SetSpaceBefore(key, op.SpaceBefore)
		return
	}
	if op.Policy == PolicyPreserve && outcome != OutcomeCreated {
		return
	}
	if outcome != OutcomeCreated && yamldoc.CommentBefore(key) != "" {
		return
	}
	if op.CommentBefore != "" {
		yamldoc.SetCommentBefore(key, op.CommentBefore)
	}
	if op.SpaceBefore {
		yamldoc.SetSpaceBefore(key, true)
	}
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
