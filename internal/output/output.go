// Package output is the single output surface for gridline commands: a
// JSON envelope on stdout for scripts, or styled human lines split across
// stdout (results) and stderr (diagnostics).
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/gridline-app/gridline/internal/render"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Writer dispatches command output by mode. In JSON mode Stdout carries
// exactly one envelope and the diagnostic channels go silent, so the
// stream stays parseable. Writes are serialized through a mutex: the
// session's autosave and timeline-refresh callbacks warn from background
// goroutines while the command is still printing its result.
type Writer struct {
	JSONMode  bool
	QuietMode bool
	Stdout    io.Writer
	Stderr    io.Writer

	mu sync.Mutex
}

// New returns a Writer over os.Stdout and os.Stderr.
func New(jsonMode, quietMode bool) *Writer {
	return &Writer{
		JSONMode:  jsonMode,
		QuietMode: quietMode,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Success renders a command result. JSON mode wraps data in a success
// envelope on Stdout. Human mode prints the message: single lines get a
// check prefix, while multi-line content (tables, boards, detail and
// timeline views) arrives pre-formatted and passes through untouched.
func (w *Writer) Success(data any, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message)
		return
	}
	switch {
	case message == "":
	case strings.Contains(message, "\n"):
		fmt.Fprintln(w.Stdout, message)
	case render.ColorsEnabled():
		fmt.Fprintf(w.Stdout, "%s %s\n", okStyle.Render("✔"), message)
	default:
		fmt.Fprintln(w.Stdout, message)
	}
}

// Error renders an error and returns the exit code for its classification
// so the caller can hand it to os.Exit. JSON mode writes the error
// envelope to Stdout; human mode prints to Stderr.
func (w *Writer) Error(err error, code ErrorCode) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.JSONMode {
		writeJSONError(w.Stdout, err, code)
		return ExitCodeForError(code)
	}
	if render.ColorsEnabled() {
		fmt.Fprintf(w.Stderr, "%s %s\n", failStyle.Render("✘ Error:"), err)
	} else {
		fmt.Fprintf(w.Stderr, "Error: %s\n", err)
	}
	return ExitCodeForError(code)
}

// Info writes a hint to Stderr. Quiet mode and JSON mode both drop it.
func (w *Writer) Info(format string, args ...any) {
	if w.QuietMode || w.JSONMode {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if render.ColorsEnabled() {
		fmt.Fprintln(w.Stderr, infoStyle.Render("ℹ "+msg))
	} else {
		fmt.Fprintln(w.Stderr, msg)
	}
}

// Warn writes a warning to Stderr. Warnings survive quiet mode (a failed
// autosave flush must not vanish silently) but are dropped in JSON mode.
func (w *Writer) Warn(format string, args ...any) {
	if w.JSONMode {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	if render.ColorsEnabled() {
		fmt.Fprintf(w.Stderr, "%s %s\n", warnStyle.Render("⚠ Warning:"), msg)
	} else {
		fmt.Fprintf(w.Stderr, "Warning: %s\n", msg)
	}
}
