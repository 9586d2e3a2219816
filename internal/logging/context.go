package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

type runCtxKey struct{}
type fileCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}
	if file := FileFromContext(ctx); file != "" {
		fields = append(fields, zap.String("pipeline.file", file))
	}
	return fields
}

// WithRunID tags ctx with the ID of one generation pass.
// Panics if runID is empty or contains invalid characters.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" || len(runID) > maxIDLen || !idPattern.MatchString(runID) {
		panic(fmt.Sprintf("logging: invalid run ID %q", runID))
	}
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext returns the run ID, or "".
func RunIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(runCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithFile tags ctx with the pipeline file being generated.
func WithFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, fileCtxKey{}, path)
}

// FileFromContext returns the pipeline file, or "".
func FileFromContext(ctx context.Context) string {
	if f, ok := ctx.Value(fileCtxKey{}).(string); ok {
		return f
	}
	return ""
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger from ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
