package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// debugLog is an open --debug session. Records go to the console in the
// pretty format and to a JSON lines file that can be attached to a bug report.
type debugLog struct {
	path   string
	file   *os.File
	logger *slog.Logger
}

var activeDebugLog *debugLog

// startDebugLog opens the session when --debug is set. A file that cannot be
// opened only costs the file copy; console debug output still works.
func startDebugLog() {
	if !debugLogs {
		return
	}
	d, err := openDebugLog(debugLogPath, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open debug log: %v\n", err)
		activeDebugLog = &debugLog{logger: newDebugLogger(os.Stderr)}
		return
	}
	activeDebugLog = d
	fmt.Fprintln(os.Stderr, "  Debug log: "+d.path)
}

func openDebugLog(path string, console io.Writer) (*debugLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	file := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: redactSecrets,
	})
	return &debugLog{
		path:   path,
		file:   f,
		logger: slog.New(fanoutHandler{newDebugHandler(console), file}),
	}, nil
}

func (d *debugLog) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	return d.file.Close()
}

// getLogger returns the session logger under --debug, else the quiet
// console logger.
func getLogger() *slog.Logger {
	if activeDebugLog != nil {
		return activeDebugLog.logger
	}
	return newPrettyLogger(os.Stderr)
}

// redactSecrets keeps passwords and keys out of the debug file.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	if strings.Contains(key, "password") || strings.HasSuffix(key, "key") || strings.Contains(key, "token") {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

// fanoutHandler passes every record to each handler that accepts its level.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
