package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pipeforge/internal/validate"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a workflow",
		Long: `Check a workflow for dependency cycles, missing job and output references,
unreachable jobs and hardcoded secrets.

Without an argument the configured output file is checked.

Examples:
  pipeforge validate
  pipeforge validate .github/workflows/release.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			path := a.outputPath()
			if len(args) == 1 {
				path = args[0]
				if !filepath.IsAbs(path) {
					path = filepath.Join(a.root, path)
				}
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read workflow: %w", err)
			}

			res := validate.Validate(data)
			if a.scanner != nil {
				issues, err := a.scanner.Scan(ctx, data)
				if err != nil {
					a.log.Warn(ctx, "secret scan failed", zap.Error(err))
				}
				res = res.WithWarnings(issues...)
			}

			renderValidation(cmd.OutOrStdout(), path, res)
			if !res.Valid {
				return errValidation
			}
			return nil
		},
	}
}
