// Package session implements the scan controller: a state machine that gates
// capture and extraction attempts, and the scheduler task that drives it from
// a periodic timer and from user picks.
package session

import "fmt"

// Phase is the session's position in the scan state machine
type Phase int

const (
	// PhaseIdle is the state before camera permission is confirmed
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseProcessing
	// PhaseFound is terminal until reset
	PhaseFound
)

var phaseNames = [...]string{"idle", "scanning", "processing", "found"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Trigger identifies what started an attempt
type Trigger int

const (
	// TriggerPeriodic attempts come from the timer and are silent on a miss
	TriggerPeriodic Trigger = iota
	// TriggerOnDemand attempts come from a user pick and notify on a miss
	TriggerOnDemand
)

func (t Trigger) String() string {
	if t == TriggerOnDemand {
		return "on_demand"
	}
	return "periodic"
}

// MarshalText implements encoding.TextMarshaler
func (t Trigger) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Session is the state of one scanning attempt-sequence
type Session struct {
	ID          string  `json:"id"`
	Phase       Phase   `json:"phase"`
	LastResult  string  `json:"last_result,omitempty"`
	Busy        bool    `json:"busy"`
	Trigger     Trigger `json:"trigger"`
	Attempt     uint64  `json:"attempt"`
	TimerActive bool    `json:"timer_active"`
}

// New returns an idle session
func New(id string) Session {
	return Session{ID: id, Phase: PhaseIdle}
}
