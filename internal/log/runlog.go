package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/gosimple/slug"
	slogmulti "github.com/samber/slog-multi"
)

// RunDir is the subdirectory of the log directory holding per-run logs.
const RunDir = "runs"

// WithRunFile tees every record logged through the returned context into
// '<dir>/runs/<slug of name>.log', so a single host's bootstrap can be read
// on its own. Failing to create the file is logged and leaves 'ctx' as is.
func WithRunFile(ctx context.Context, dir, name string) (context.Context, func()) {
	if dir == "" {
		return ctx, func() {}
	}

	runDir := filepath.Join(dir, RunDir)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		clog.WarnContext(ctx, "failed to create run log directory", "path", runDir, "error", err.Error())
		return ctx, func() {}
	}

	logPath := filepath.Join(runDir, fmt.Sprintf("%s.log", slug.Make(name)))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		clog.WarnContext(ctx, "failed to create run log file", "path", logPath, "error", err.Error())
		return ctx, func() {}
	}

	handler := slogmulti.Fanout(
		clog.FromContext(ctx).Handler(),
		slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	clog.InfoContext(ctx, "logging run output to file", "path", logPath)
	ctx = clog.WithLogger(ctx, clog.New(handler))

	return ctx, func() {
		if err := logFile.Close(); err != nil {
			clog.WarnContext(ctx, "failed to close run log file", "path", logPath, "error", err.Error())
		}
	}
}
