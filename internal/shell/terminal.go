package shell

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/zombor/epic-scan/internal/session"
)

// Terminal prints notices and results for someone watching the console
type Terminal struct {
	out    io.Writer
	notice func(a ...interface{}) string
	result func(a ...interface{}) string

	// last phase seen by Observe, which is only called from the controller goroutine
	last session.Phase
}

// NewTerminal creates a Terminal writing to out
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:    out,
		notice: color.New(color.FgYellow).SprintFunc(),
		result: color.New(color.FgGreen, color.Bold).SprintFunc(),
	}
}

// Notify implements session.Notifier
func (t *Terminal) Notify(message string) {
	fmt.Fprintln(t.out, t.notice("[NOTICE] "+message))
}

// Observe prints the identifier when a session finds one, and a banner when
// scanning (re)starts. Register it with session.Controller.Observe.
func (t *Terminal) Observe(s session.Session) {
	defer func() { t.last = s.Phase }()

	switch {
	case s.Phase == session.PhaseFound && t.last != session.PhaseFound:
		fmt.Fprintln(t.out, t.result("Voter ID Detected  EPIC: "+s.LastResult))
	case s.Phase == session.PhaseScanning && (t.last == session.PhaseIdle || t.last == session.PhaseFound):
		fmt.Fprintln(t.out, "Scanning Voter ID...")
	}
}
