// Package builders turns configuration into patch operations.
//
// Each builder owns one component of the pipeline (the header and
// triggers, or one managed job) and expresses it as operations. The
// assembler applies them in the order returned here, and job order in
// the output follows that order.
package builders

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/pipeforge/internal/config"
	"github.com/fyrsmithlabs/pipeforge/internal/patch"
	"github.com/fyrsmithlabs/pipeforge/internal/yamldoc"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned when Build is called without a configuration.
var ErrNoConfig = errors.New("no configuration")

const (
	checkoutAction = "actions/checkout@v4"
	filterAction   = "dorny/paths-filter@v3"

	headerComment = "Generated by pipeforge. Managed jobs are rewritten on every run;\n" +
		"put your own jobs between the custom job markers."
)

// Builder produces the operations for one pipeline component.
type Builder func(cfg *config.Config) ([]patch.Operation, error)

// Build runs every builder that applies to cfg.
func Build(cfg *config.Config) ([]patch.Operation, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	var ops []patch.Operation
	for _, b := range For(cfg) {
		out, err := b(cfg)
		if err != nil {
			return nil, err
		}
		ops = append(ops, out...)
	}
	return ops, nil
}

// For lists the builders used for cfg in pipeline order.
func For(cfg *config.Config) []Builder {
	builders := []Builder{Header, Changes, Version}
	if cfg.Monorepo() {
		builders = append(builders, TestAffected)
	}
	builders = append(builders, Tag)
	if cfg.BranchFlow.Develop != "" {
		builders = append(builders, Promote)
	}
	return append(builders, Release)
}

// Header covers the workflow name, triggers, permissions and concurrency.
// Branch lists are merged so branches added by hand survive; permissions
// and concurrency are only seeded.
func Header(cfg *config.Config) ([]patch.Operation, error) {
	var t tree
	inputs := t.m(
		"release", t.m(
			"description", "Tag and publish a release from the trunk",
			"type", "boolean",
			"default", false,
		),
	)
	permissions := t.m("contents", "write")
	if t.err != nil {
		return nil, fmt.Errorf("build header: %w", t.err)
	}

	prBranches := []string{cfg.BranchFlow.Trunk}
	if cfg.BranchFlow.Develop != "" {
		prBranches = append(prBranches, cfg.BranchFlow.Develop)
	}

	return []patch.Operation{
		patch.Overwrite("name", patch.Literal(cfg.Name)).WithComment(headerComment, false),
		patch.Preserve("on", patch.Tree(yamldoc.NewMapping())).WithComment("", true),
		patch.Merge("on.push.branches", patch.Literal(cfg.PushBranches())).MarkRequired(),
		patch.Merge("on.pull_request.branches", patch.Literal(prBranches)).MarkRequired(),
		patch.Set("on.workflow_dispatch.inputs", patch.Tree(inputs)).MarkRequired(),
		patch.Preserve("permissions", patch.Tree(permissions)).WithComment("", true),
		patch.Preserve("concurrency", patch.RawText(
			"group: ${{ github.workflow }}-${{ github.ref }}\ncancel-in-progress: true\n")).WithComment("", true),
		patch.Preserve("jobs", patch.Tree(yamldoc.NewMapping())).WithComment("", true),
	}, nil
}

// jobOp overwrites a whole managed job.
func jobOp(name, comment string, job *yaml.Node) patch.Operation {
	return patch.Overwrite(yamldoc.JoinPath("jobs", name), patch.Tree(job)).WithComment(comment, true)
}
