package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/pipeforge/internal/assembler"
	"github.com/fyrsmithlabs/pipeforge/internal/builders"
)

type generateOptions struct {
	forceGate       bool
	stdout          bool
	metricsTextfile string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate or update the workflow",
		Long: `Generate the workflow from .pipeforge.yaml, or reconcile an existing one.

The result is validated before it is written. With validation.block_on_error
set, a workflow with errors is not written and the command fails.

Examples:
  # Update .github/workflows/ci.yml in place
  pipeforge generate

  # Recompute the gate's needs from the current job list
  pipeforge generate --force-gate

  # Print the workflow instead of writing it
  pipeforge generate --stdout > /tmp/ci.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			report := cmd.OutOrStdout()
			if opts.stdout {
				report = cmd.ErrOrStderr()
			}
			res, err := runGenerate(ctx, a, opts, report)
			if err != nil {
				return err
			}
			if opts.stdout {
				_, err = cmd.OutOrStdout().Write(res.Output)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.forceGate, "force-gate", false, "recompute the gate job even if it exists")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "print the workflow to stdout instead of writing it")
	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	return cmd
}

// runGenerate runs one pass and prints its report.
func runGenerate(ctx context.Context, a *app, opts *generateOptions, report io.Writer) (*assembler.FileResult, error) {
	defer a.writeMetrics(ctx, opts.metricsTextfile)

	ops, err := builders.Build(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := a.generator(opts.forceGate, opts.stdout).GenerateFile(ctx, a.outputPath(), ops)
	if res != nil {
		renderGenerate(report, res)
	}
	if errors.Is(err, assembler.ErrValidationFailed) {
		return nil, errValidation
	}
	return res, err
}
