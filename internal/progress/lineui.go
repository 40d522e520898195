package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/andresharpe/cute-sub002/internal/bulk"
)

// LineUI prints one line per event, for pipes and CI logs.
type LineUI struct {
	mu  sync.Mutex
	out io.Writer
}

// NewLineUI writes to out.
func NewLineUI(out io.Writer) *LineUI {
	return &LineUI{out: out}
}

// Handle implements UI.
func (u *LineUI) Handle(ev bulk.ProgressEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintln(u.out, ev.String())
}

// Writer implements UI.
func (u *LineUI) Writer() io.Writer { return u.out }

// Wait implements UI.
func (u *LineUI) Wait() {}

// IsTerminal implements UI.
func (u *LineUI) IsTerminal() bool { return false }

// LogUI turns events into structured log records.
type LogUI struct {
	log zerolog.Logger
}

// NewLogUI logs through log.
func NewLogUI(log zerolog.Logger) *LogUI {
	return &LogUI{log: log}
}

// Handle implements UI. Events carrying an error are logged at warn level.
func (u *LogUI) Handle(ev bulk.ProgressEvent) {
	e := u.log.Info()
	if ev.Err != nil {
		e = u.log.Warn().Err(ev.Err)
	}
	e.Str("phase", string(ev.Phase)).
		Int("succeeded", ev.Succeeded).
		Int("total", ev.Total).
		Msg(ev.Message)
}

// Writer implements UI.
func (u *LogUI) Writer() io.Writer { return u.log }

// Wait implements UI.
func (u *LogUI) Wait() {}

// IsTerminal implements UI.
func (u *LogUI) IsTerminal() bool { return false }
