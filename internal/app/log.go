package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogFileName is the log file created inside the configured log directory.
const LogFileName = "filechk.log"

// sink is one destination with its own minimum level.
type sink struct {
	w   io.Writer
	min slog.Level
}

// logHandler is a slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
type logHandler struct {
	mu    *sync.Mutex
	sinks []sink
	runID string
	attrs []slog.Attr
}

func newLogHandler(runID string, sinks ...sink) *logHandler {
	return &logHandler{mu: &sync.Mutex{}, sinks: sinks, runID: runID}
}

func (h *logHandler) Enabled(_ context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if level >= s.min {
			return true
		}
	}
	return false
}

func (h *logHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.runID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sinks {
		if r.Level < s.min {
			continue
		}
		if _, err := s.w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logHandler{
		mu:    h.mu,
		sinks: h.sinks,
		runID: h.runID,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *logHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a logger that writes everything from Debug up to
// logDir/filechk.log, and Warn and above to stderr unless verbose is set.
// It returns the open log file for cleanup.
func newLogger(logDir, runID string, verbose bool) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	stderrLevel := slog.LevelWarn
	if verbose {
		stderrLevel = slog.LevelDebug
	}
	handler := newLogHandler(runID,
		sink{w: f, min: slog.LevelDebug},
		sink{w: os.Stderr, min: stderrLevel},
	)
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy catalog.Logger.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
