package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// fsHandler formats one log record per line:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// The operation ID ties every line of a CLI invocation or watch cycle
// together, which is what the log is grepped by in practice.
type fsHandler struct {
	w     io.Writer
	opID  string
	attrs []slog.Attr
}

func (h *fsHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *fsHandler) Handle(_ context.Context, r slog.Record) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s",
		r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.opID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	// One write per record; the sweeper and watcher log concurrently.
	_, err := h.w.Write(b.Bytes())
	return err
}

func (h *fsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &fsHandler{w: h.w, opID: h.opID, attrs: merged}
}

func (h *fsHandler) WithGroup(string) slog.Handler { return h }

// newLogger opens logDir/filesentry.log and returns a logger writing to it
// and to stderr. The returned file is the caller's to close.
func newLogger(logDir string, opID string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "filesentry.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &fsHandler{w: io.MultiWriter(f, os.Stderr), opID: opID}
	return slog.New(handler), f, nil
}

// slogAdapter narrows *slog.Logger to the scan.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
