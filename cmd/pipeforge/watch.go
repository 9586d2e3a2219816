package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pipeforge/internal/config"
	"github.com/fyrsmithlabs/pipeforge/internal/logging"
	"github.com/fyrsmithlabs/pipeforge/internal/secrets"
	"github.com/fyrsmithlabs/pipeforge/internal/watch"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the workflow whenever the config changes",
		Long: `Generate once, then regenerate whenever .pipeforge.yaml or the secret
allowlist changes. Stop with Ctrl-C.

The config is reloaded on every change. An invalid config is reported and the
previous workflow is left in place until the config is fixed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			cmd.SetContext(ctx)

			ctx, a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			pass := func(ctx context.Context) error {
				// Reload so edits to the config take effect.
				cfg, err := config.LoadWithFile(a.configPath)
				if err != nil {
					return err
				}
				a.cfg = cfg
				a.scanner = nil
				if cfg.Validation.SecretScan {
					if a.scanner, err = a.newScanner(); err != nil {
						return err
					}
				}
				_, err = runGenerate(ctx, a, opts, cmd.OutOrStdout())
				if errors.Is(err, errValidation) {
					return nil
				}
				return err
			}
			if err := pass(ctx); err != nil {
				a.log.Error(ctx, "initial generation failed", zap.Error(err))
			}

			w, err := watch.New(a.watchedFiles(), a.cfg.Watch.Debounce.Duration(), pass)
			if err != nil {
				return err
			}
			logging.FromContext(ctx).Info(ctx, "watching for changes", zap.String("config", a.configPath))
			return w.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&opts.forceGate, "force-gate", false, "recompute the gate job on every pass")
	return cmd
}

func (a *app) watchedFiles() []string {
	files := []string{a.configPath}
	dir := a.root
	if a.cfg.Validation.Allowlist != "" {
		dir = a.cfg.Validation.Allowlist
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(a.root, dir)
		}
	}
	return append(files, filepath.Join(dir, secrets.AllowlistFile))
}
