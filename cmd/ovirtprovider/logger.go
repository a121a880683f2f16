package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
)

const (
	clrReset  = "\033[0m"
	clrBold   = "\033[1m"
	clrRed    = "\033[31m"
	clrYellow = "\033[33m"
	clrGreen  = "\033[32m"
	clrCyan   = "\033[36m"
	clrGray   = "\033[90m"
	clrWhite  = "\033[97m"
)

// prettyHandler is a slog.Handler that formats log records with ANSI colors.
// No timestamps unless stamp is set; debug records are shown only at debug level.
type prettyHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	stamp bool
	attrs []slog.Attr
}

func newPrettyLogger(w io.Writer) *slog.Logger {
	return slog.New(&prettyHandler{mu: &sync.Mutex{}, out: w, level: slog.LevelInfo})
}

func newDebugLogger(w io.Writer) *slog.Logger {
	return slog.New(newDebugHandler(w))
}

func newDebugHandler(w io.Writer) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, out: w, level: slog.LevelDebug, stamp: true}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &prettyHandler{mu: h.mu, out: h.out, level: h.level, stamp: h.stamp, attrs: newAttrs}
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var prefix, msgColor string
	switch {
	case r.Level >= slog.LevelError:
		prefix = clrRed + "  ✗ " + clrReset
		msgColor = clrRed
	case r.Level >= slog.LevelWarn:
		prefix = clrYellow + "  ⚠ " + clrReset
		msgColor = clrYellow
	case r.Level >= slog.LevelInfo:
		prefix = clrGray + "  → " + clrReset
		msgColor = clrWhite
	default:
		prefix = clrGray + "  · " + clrReset
		msgColor = clrGray
	}

	var sb strings.Builder
	if h.stamp && !r.Time.IsZero() {
		sb.WriteString(clrGray)
		sb.WriteString(r.Time.Format(time.TimeOnly))
		sb.WriteString(clrReset)
	}
	sb.WriteString(prefix)
	sb.WriteString(msgColor)
	sb.WriteString(clrBold)
	sb.WriteString(r.Message)
	sb.WriteString(clrReset)

	writeAttr := func(a slog.Attr) bool {
		sb.WriteString("  ")
		sb.WriteString(clrGray)
		sb.WriteString(a.Key)
		sb.WriteString("=")
		sb.WriteString(clrReset)
		sb.WriteString(colorForValue(a))
		sb.WriteString(a.Value.String())
		sb.WriteString(clrReset)
		return true
	}

	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)

	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprint(h.out, sb.String())
	return err
}

// colorForValue picks an ANSI color based on the attribute key and value.
func colorForValue(a slog.Attr) string {
	switch a.Key {
	case "error", "cause":
		return clrRed
	case "result":
		if a.Value.String() == "ok" {
			return clrGreen
		}
		return clrRed
	case "manager", "host", "hostname", "target", "path", "url":
		return clrCyan
	}
	if isNumericVal(a.Value.String()) {
		return clrYellow
	}
	return clrCyan
}

func isNumericVal(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !unicode.IsDigit(c) && c != '.' && c != '-' {
			return false
		}
	}
	return true
}
