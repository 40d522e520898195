// Package progress renders bulk run progress in the terminal.
package progress

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/andresharpe/cute-sub002/internal/bulk"
)

// UI consumes progress events from a bulk run.
type UI interface {
	// Handle renders one event. Calls never overlap.
	Handle(ev bulk.ProgressEvent)

	// Writer returns an io.Writer that safely outputs above the progress bars.
	Writer() io.Writer

	// Wait completes any open bars and blocks until rendering has stopped.
	Wait()

	// IsTerminal returns true if output is to a terminal (progress bars are active)
	IsTerminal() bool
}

// Mode selects how progress is shown.
type Mode int

const (
	ModeAuto  Mode = iota // bars on a terminal, lines otherwise
	ModeLines             // one line per event
	ModeLog               // structured log events
)

// New picks a UI for out. log is only used in ModeLog.
func New(out *os.File, mode Mode, log zerolog.Logger) UI {
	switch mode {
	case ModeLog:
		return NewLogUI(log)
	case ModeLines:
		return NewLineUI(out)
	}
	// Old Windows consoles without escape support get plain lines.
	if term.IsTerminal(int(out.Fd())) && enableANSI(out) {
		return NewBulkUI(out, true)
	}
	return NewLineUI(out)
}
