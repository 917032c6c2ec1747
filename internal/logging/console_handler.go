package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	2026-01-02T15:04:05Z INFO  workflow: stage completed task_id=3 stage=transcribing
//
// The component attribute becomes the line prefix instead of a key=value
// pair. Attributes added through With are formatted once, up front.
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	addSource bool

	component string
	group     string // dotted prefix for keys, "" or "a.b."
	preset    []byte // " k=v" pairs from WithAttrs
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	component := h.component
	var attrs []byte
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == FieldComponent && h.group == "" {
			component = a.Value.String()
			return true
		}
		attrs = appendAttr(attrs, h.group, a)
		return true
	})

	buf := make([]byte, 0, 128+len(h.preset)+len(attrs))
	buf = ts.UTC().AppendFormat(buf, time.RFC3339)
	buf = fmt.Appendf(buf, " %-5s ", levelLabel(record.Level))
	if component != "" {
		buf = append(buf, component...)
		buf = append(buf, ": "...)
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf = append(buf, msg...)
	} else {
		buf = append(buf, "(no message)"...)
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			buf = fmt.Appendf(buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	buf = append(buf, h.preset...)
	buf = append(buf, attrs...)
	buf = append(buf, '\n')
	return h.out.write(buf)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = append([]byte(nil), h.preset...)
	for _, a := range attrs {
		if a.Key == FieldComponent && h.group == "" {
			clone.component = a.Value.String()
			continue
		}
		clone.preset = appendAttr(clone.preset, h.group, a)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, child := range a.Value.Group() {
			buf = appendAttr(buf, group, child)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, group...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func levelLabel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}
