package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	charmlog "github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// InfoFile and ErrorFile are the log streams written under the log
	// directory.
	InfoFile  = "webctl.log"
	ErrorFile = "webctl-error.log"

	maxSizeMB  = 1
	maxBackups = 5
)

// Options configures 'Setup'.
type Options struct {
	// Dir is the directory the file streams are written to. No file streams
	// are set up when empty.
	Dir string

	// Verbose lowers the console level to debug.
	Verbose bool

	// Console is where human readable records go, stderr when nil.
	Console io.Writer

	// Extra handlers are fanned out to alongside the built-in ones, e.g. the
	// OTLP bridge from 'o11y.SetupLogging'.
	Extra []slog.Handler
}

// Setup builds the process logger and stores it on the returned context. The
// returned func closes every file stream and must be called before exit.
func Setup(ctx context.Context, opts Options) (context.Context, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := charmlog.InfoLevel
	if opts.Verbose {
		level = charmlog.DebugLevel
	}
	handlers := []slog.Handler{
		charmlog.NewWithOptions(console, charmlog.Options{Level: level}),
	}

	var closers []io.Closer
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return ctx, nil, err
		}
		for _, stream := range []struct {
			name  string
			level slog.Level
		}{
			{InfoFile, slog.LevelInfo},
			{ErrorFile, slog.LevelError},
		} {
			w := &lumberjack.Logger{
				Filename:   filepath.Join(opts.Dir, stream.name),
				MaxSize:    maxSizeMB,
				MaxBackups: maxBackups,
			}
			closers = append(closers, w)
			handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: stream.level}))
		}
	}
	handlers = append(handlers, opts.Extra...)

	logger := clog.New(slogmulti.Fanout(handlers...))
	ctx = clog.WithLogger(ctx, logger)
	slog.SetDefault(&logger.Logger)

	return ctx, func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}, nil
}
