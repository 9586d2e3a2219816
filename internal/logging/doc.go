// Package logging provides structured logging for pipeforge.
//
// # Overview
//
// The package wraps Zap with:
//   - A custom Trace level (-2, below Debug)
//   - Context field injection (generation run ID, pipeline file)
//   - Redaction of secret-looking fields, since findings from the secret
//     scanner pass through the log
//
// Logs go to stderr so that generated pipelines printed to stdout stay
// clean.
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithLogger(ctx, logger)
//	logger.Info(ctx, "pipeline written", zap.String("status", "merged"))
//
// Library packages retrieve the logger with FromContext, which falls back to
// a no-op logger.
//
// # Testing
//
//	logger := logging.NewTestLogger()
//	ctx := logging.WithLogger(context.Background(), logger.Logger)
//	// ...
//	logger.AssertLogged(t, zapcore.InfoLevel, "pipeline written")
package logging
