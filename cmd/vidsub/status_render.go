package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

// statusStyles maps a kind to its bracketed tag and terminal color.
var statusStyles = [...]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func (k statusKind) tag() string   { return statusStyles[k].tag }
func (k statusKind) color() string { return statusStyles[k].color }

// renderStatusLine formats "  Label:          [TAG] message".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	var b strings.Builder
	b.WriteString(statusIndent)
	fmt.Fprintf(&b, "%-*s [%s]", statusLabelWidth, label+":", kind.tag())
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	if !colorize {
		return b.String()
	}
	return kind.color() + b.String() + ansiReset
}

// statusWriter prints sections of status lines, colored when out is a terminal.
type statusWriter struct {
	out      io.Writer
	colorize bool
	sections int
}

func newStatusWriter(out io.Writer) *statusWriter {
	return &statusWriter{out: out, colorize: shouldColorize(out)}
}

// section prints a "== title ==" header with an underline, separated from the
// previous section by a blank line.
func (w *statusWriter) section(title string) {
	if w.sections > 0 {
		fmt.Fprintln(w.out)
	}
	w.sections++
	header := "== " + strings.TrimSpace(title) + " =="
	underline := strings.Repeat("-", len(header))
	if w.colorize {
		header = statusInfo.color() + header + ansiReset
		underline = statusInfo.color() + underline + ansiReset
	}
	fmt.Fprintln(w.out, header)
	fmt.Fprintln(w.out, underline)
}

func (w *statusWriter) line(label string, kind statusKind, message string) {
	fmt.Fprintln(w.out, renderStatusLine(label, kind, message, w.colorize))
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
