package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/term"
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
// Designed for CLI output: no timestamps, colored level indicators, highlighted values.
type prettyHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	attrs []slog.Attr // pre-set attrs from WithAttrs
}

func newPrettyLogger(w io.Writer) *slog.Logger {
	return slog.New(&prettyHandler{mu: new(sync.Mutex), out: w, level: slog.LevelInfo})
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &prettyHandler{mu: h.mu, out: h.out, level: h.level, attrs: newAttrs}
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var prefix, msgColor string
	switch r.Level {
	case slog.LevelInfo:
		prefix = clrGray + "  → " + clrReset
		msgColor = clrWhite
	case slog.LevelWarn:
		prefix = clrYellow + "  ⚠ " + clrReset
		msgColor = clrYellow
	case slog.LevelError:
		prefix = clrRed + "  ✗ " + clrReset
		msgColor = clrRed
	default:
		prefix = clrGray + "  · " + clrReset
		msgColor = clrGray
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(msgColor)
	sb.WriteString(clrBold)
	sb.WriteString(r.Message)
	sb.WriteString(clrReset)

	writeAttr := func(a slog.Attr) bool {
		// run_id is noise on an interactive terminal
		if a.Key == "run_id" {
			return true
		}
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
	if a.Key == "error" || a.Key == "reason" {
		return clrRed
	}
	val := a.Value.String()
	switch a.Key {
	case "action":
		switch {
		case strings.HasPrefix(val, "Delete"):
			return clrRed
		case strings.HasPrefix(val, "Retire"):
			return clrYellow
		}
		return clrGreen
	case "library", "source", "destination", "template", "group", "host", "path":
		return clrCyan
	}
	if isNumericVal(val) {
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

// isTTY reports whether f is an interactive terminal.
func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newCLILogger picks the output format: colored for terminals, JSON for
// cron jobs and CI where the output is collected by a log shipper.
func newCLILogger(format string) *slog.Logger {
	return newFormatLogger(os.Stdout, format, isTTY(os.Stdout))
}

// newCLILoggerTo is newCLILogger for commands whose stdout is machine-read.
func newCLILoggerTo(w io.Writer) *slog.Logger {
	if debugLogs && debugLogger != nil {
		return debugLogger
	}
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isTTY(f)
	}
	return newFormatLogger(w, logFormat, tty)
}

func newFormatLogger(w io.Writer, format string, tty bool) *slog.Logger {
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, nil))
	case "pretty":
		return newPrettyLogger(w)
	}
	if tty {
		return newPrettyLogger(w)
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}
