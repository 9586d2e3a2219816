// Package main implements the pipeforge CLI, which generates and maintains
// a CI workflow from .pipeforge.yaml.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time.
var version = "dev"

// errValidation is returned when a pipeline has validation errors. The
// report has already been printed.
var errValidation = errors.New("pipeline has validation errors")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errValidation) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	dir        string
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pipeforge",
		Short: "Generate and maintain a CI workflow",
		Long: `pipeforge generates a GitHub Actions workflow for a trunk-based branch
flow from .pipeforge.yaml and keeps it up to date.

Managed jobs are rewritten on every run. Jobs you add between the custom job
markers, and edits to branch lists, permissions and concurrency, survive
regeneration.

Examples:
  # Generate or update the workflow
  pipeforge generate

  # Print the result without writing it
  pipeforge generate --stdout

  # Check an existing workflow
  pipeforge validate .github/workflows/ci.yml`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "project directory")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <repo root>/.pipeforge.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pipeforge version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pipeforge %s\n", version)
		},
	}
}
