package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pipeforge/internal/assembler"
	"github.com/fyrsmithlabs/pipeforge/internal/config"
	"github.com/fyrsmithlabs/pipeforge/internal/gitrepo"
	"github.com/fyrsmithlabs/pipeforge/internal/hooks"
	"github.com/fyrsmithlabs/pipeforge/internal/logging"
	"github.com/fyrsmithlabs/pipeforge/internal/metrics"
	"github.com/fyrsmithlabs/pipeforge/internal/secrets"
)

// app holds everything a command needs for one invocation.
type app struct {
	root       string
	configPath string
	cfg        *config.Config
	log        *logging.Logger
	hooks      *hooks.HookManager
	scanner    *secrets.Scanner
	metrics    *metrics.Metrics
}

// newApp resolves the project root, loads the configuration and sets up
// logging. The returned context carries the logger and a fresh run ID.
func newApp(cmd *cobra.Command, opts *rootOptions) (context.Context, *app, error) {
	root, repo := resolveRoot(opts.dir)

	configPath := opts.configPath
	if configPath == "" {
		configPath = filepath.Join(root, config.FileName)
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logCfg, err := logging.FromSettings(level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.NewLoggerTo(logCfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	ctx := logging.WithRunID(cmd.Context(), uuid.NewString())
	ctx = logging.WithLogger(ctx, log)

	a := &app{
		root:       root,
		configPath: configPath,
		cfg:        cfg,
		log:        log,
		hooks:      hooks.NewHookManager(),
		metrics:    metrics.New(),
	}
	if repo != nil {
		a.checkBranches(ctx, repo)
	} else {
		log.Debug(ctx, "not a git repository, using project directory as root", zap.String("dir", root))
	}
	if cfg.Validation.SecretScan {
		if a.scanner, err = a.newScanner(); err != nil {
			return nil, nil, err
		}
	}
	if err := a.registerHooks(); err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}

// resolveRoot returns the repository root containing dir, or dir itself.
func resolveRoot(dir string) (string, *gitrepo.Repo) {
	repo, err := gitrepo.Open(dir)
	if err != nil {
		abs, absErr := filepath.Abs(dir)
		if absErr != nil {
			return dir, nil
		}
		return abs, nil
	}
	return repo.Root(), repo
}

// checkBranches warns about branch flow branches the repository lacks.
func (a *app) checkBranches(ctx context.Context, repo *gitrepo.Repo) {
	missing, err := repo.MissingBranches(a.cfg.BranchFlow.Trunk, a.cfg.BranchFlow.Develop)
	if err != nil {
		a.log.Debug(ctx, "branch lookup failed", zap.Error(err))
		return
	}
	if len(missing) > 0 {
		a.log.Warn(ctx, "branch flow names branches missing from the repository",
			zap.Strings("branches", missing))
	}
	if branch, err := repo.CurrentBranch(); err == nil && branch != "" {
		a.log.Debug(ctx, "current branch", zap.String("branch", branch))
	}
}

func (a *app) newScanner() (*secrets.Scanner, error) {
	dir := a.cfg.Validation.Allowlist
	if dir == "" {
		dir = a.root
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.root, dir)
	}
	allow, err := secrets.LoadAllowlist(dir)
	if err != nil {
		return nil, fmt.Errorf("load secret allowlist: %w", err)
	}
	return secrets.NewScanner(allow)
}

func (a *app) registerHooks() error {
	return errors.Join(
		a.hooks.RegisterHandler(hooks.HookValidationFailed, func(ctx context.Context, e hooks.Event) error {
			logging.FromContext(ctx).Warn(ctx, "validation failed",
				zap.Int("errors", e.Errors), zap.Int("warnings", e.Warnings))
			return nil
		}),
		a.hooks.RegisterHandler(hooks.HookAfterWrite, func(ctx context.Context, e hooks.Event) error {
			logging.FromContext(ctx).Debug(ctx, "wrote pipeline",
				zap.Int("bytes", len(e.Output)), zap.String("status", e.Status))
			return nil
		}),
	)
}

// outputPath resolves the configured workflow path against the root.
func (a *app) outputPath() string {
	if filepath.IsAbs(a.cfg.Output) {
		return a.cfg.Output
	}
	return filepath.Join(a.root, a.cfg.Output)
}

func (a *app) generator(forceGate, dryRun bool) *assembler.Generator {
	g := &assembler.Generator{
		Options: assembler.Options{
			Registry:   assembler.NewRegistry(a.cfg.Flavor),
			ForceGate:  forceGate || a.cfg.Gate.Force,
			GateRunsOn: a.cfg.Gate.RunsOn,
		},
		Hooks:        a.hooks,
		Observer:     a.metrics,
		BlockOnError: a.cfg.Validation.BlockOnError,
		DryRun:       dryRun,
	}
	if a.scanner != nil {
		g.Scanner = a.scanner
	}
	return g
}

// writeMetrics exports metrics when a textfile is configured.
func (a *app) writeMetrics(ctx context.Context, override string) {
	path := a.cfg.Metrics.Textfile
	if override != "" {
		path = override
	}
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.log.Warn(ctx, "metrics not written", zap.Error(err))
	}
}

func (a *app) close() {
	_ = a.log.Sync()
}
