package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pipeforge/internal/hooks"
	"github.com/fyrsmithlabs/pipeforge/internal/logging"
	"github.com/fyrsmithlabs/pipeforge/internal/patch"
	"github.com/fyrsmithlabs/pipeforge/internal/validate"
)

// ErrValidationFailed is returned by GenerateFile when the output has
// validation errors and BlockOnError is set. The file is left untouched.
var ErrValidationFailed = errors.New("generated pipeline failed validation")

// SecretScanner reports hardcoded secrets in generated output.
type SecretScanner interface {
	Scan(ctx context.Context, data []byte) ([]validate.Issue, error)
}

// PassObserver records the outcome of a generation pass.
type PassObserver interface {
	ObservePass(status string, result validate.Result, customJobs int, elapsed time.Duration)
}

// Generator writes reconciled pipelines to disk.
type Generator struct {
	Options      Options
	Hooks        *hooks.HookManager
	Scanner      SecretScanner
	Observer     PassObserver
	BlockOnError bool
	// DryRun reconciles and validates without writing.
	DryRun bool
}

// FileResult is the outcome of GenerateFile.
type FileResult struct {
	*Result
	Path    string
	Written bool
	// Unchanged is set when the output equals the file on disk.
	Unchanged bool
}

// GenerateFile reconciles the pipeline at path with ops and replaces the
// file atomically. A missing file is generated from scratch.
func (g *Generator) GenerateFile(ctx context.Context, path string, ops []patch.Operation) (*FileResult, error) {
	start := time.Now()
	ctx = logging.WithFile(ctx, path)
	log := logging.FromContext(ctx).Named("generator")

	previous, err := readPrevious(path)
	if err != nil {
		return nil, err
	}

	res, err := Reconcile(ctx, previous, ops, g.Options)
	if err != nil {
		return nil, err
	}
	out := &FileResult{Result: res, Path: path}

	if g.Scanner != nil {
		issues, err := g.Scanner.Scan(ctx, res.Output)
		if err != nil {
			log.Warn(ctx, "secret scan failed", zap.Error(err))
		} else if len(issues) > 0 {
			res.Validation = res.Validation.WithWarnings(issues...)
		}
	}
	defer func() {
		if g.Observer != nil {
			g.Observer.ObservePass(string(res.Status), res.Validation, len(res.CustomJobs), time.Since(start))
		}
	}()

	event := hooks.Event{
		Path:     path,
		Status:   string(res.Status),
		Output:   res.Output,
		Errors:   len(res.Validation.Errors),
		Warnings: len(res.Validation.Warnings),
		DryRun:   g.DryRun,
	}

	if !res.Validation.Valid {
		if err := g.Hooks.Execute(ctx, hooks.HookValidationFailed, event); err != nil {
			log.Warn(ctx, "validation_failed hook failed", zap.Error(err))
		}
		if g.BlockOnError {
			log.Error(ctx, "pipeline not written: validation failed",
				zap.Int("errors", len(res.Validation.Errors)))
			return out, fmt.Errorf("%w: %d error(s)", ErrValidationFailed, len(res.Validation.Errors))
		}
	}

	if !res.Changed(previous) {
		out.Unchanged = true
		log.Debug(ctx, "pipeline unchanged")
		return out, nil
	}
	if g.DryRun {
		return out, nil
	}

	if err := g.Hooks.Execute(ctx, hooks.HookBeforeWrite, event); err != nil {
		return out, err
	}
	if err := writeAtomic(path, res.Output); err != nil {
		return out, err
	}
	out.Written = true
	log.Info(ctx, "pipeline written", zap.String("status", string(res.Status)))

	if err := g.Hooks.Execute(ctx, hooks.HookAfterWrite, event); err != nil {
		return out, err
	}
	return out, nil
}

func readPrevious(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read previous pipeline: %w", err)
	}
	return data, nil
}

// writeAtomic replaces path through a temporary file in the same
// directory, keeping the mode of an existing file.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace pipeline: %w", err)
	}
	return nil
}
