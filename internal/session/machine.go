package session

import (
	"github.com/zombor/epic-scan/internal/capture"
	"github.com/zombor/epic-scan/internal/epic"
)

const (
	// NoMatchMessage is shown when a picked image has no identifier
	NoMatchMessage = "No valid Voter ID detected"
	// PermissionMessage is shown when the camera cannot be used
	PermissionMessage = "Camera permission is required to scan"
)

// Event is an input to the state machine
type Event interface {
	event()
}

type (
	// Granted reports that the camera is usable
	Granted struct{}
	// Denied reports that the camera cannot be used
	Denied struct{}
	// Tick is one firing of the periodic timer
	Tick struct{}
	// Picked carries an image the user chose
	Picked struct {
		Image capture.Image
	}
	// CaptureFailed reports that a periodic capture produced no image
	CaptureFailed struct {
		Attempt uint64
		Err     error
	}
	// Extracted carries the outcome of an extraction; Identifier is empty on a miss.
	// Anything that is not a well-formed identifier also counts as a miss.
	Extracted struct {
		Attempt    uint64
		Identifier string
	}
	// Reset starts a new session with the given ID
	Reset struct {
		ID string
	}
)

func (Granted) event()       {}
func (Denied) event()        {}
func (Tick) event()          {}
func (Picked) event()        {}
func (CaptureFailed) event() {}
func (Extracted) event()     {}
func (Reset) event()         {}

// Effect is work the controller performs after a transition
type Effect interface {
	effect()
}

type (
	// StartTimer arms the periodic capture timer
	StartTimer struct{}
	// StopTimer disarms the periodic capture timer
	StopTimer struct{}
	// Capture requests a low fidelity image and its extraction
	Capture struct {
		Attempt uint64
	}
	// Extract runs extraction on an image that is already in hand
	Extract struct {
		Attempt uint64
		Image   capture.Image
	}
	// Notify shows a message to the user
	Notify struct {
		Message string
	}
)

func (StartTimer) effect() {}
func (StopTimer) effect()  {}
func (Capture) effect()    {}
func (Extract) effect()    {}
func (Notify) effect()     {}

// Transition applies an event to a session. It is pure: all side effects are
// returned for the caller to perform.
func Transition(s Session, ev Event) (Session, []Effect) {
	switch e := ev.(type) {
	case Granted:
		if s.Phase != PhaseIdle {
			return s, nil
		}
		s.Phase = PhaseScanning
		return startTimer(s, nil)

	case Denied:
		if s.Phase != PhaseIdle {
			return s, nil
		}
		return s, []Effect{Notify{Message: PermissionMessage}}

	case Tick:
		if s.Phase != PhaseScanning || !s.TimerActive || !gateOpen(s) {
			return s, nil
		}
		s = begin(s, TriggerPeriodic)
		return s, []Effect{Capture{Attempt: s.Attempt}}

	case Picked:
		if s.Phase == PhaseIdle || !gateOpen(s) {
			return s, nil
		}
		// a pick suspends periodic scanning
		var effects []Effect
		s, effects = stopTimer(begin(s, TriggerOnDemand), nil)
		return s, append(effects, Extract{Attempt: s.Attempt, Image: e.Image})

	case CaptureFailed:
		if !s.Busy || e.Attempt != s.Attempt {
			return s, nil
		}
		s.Busy = false
		if s.Phase == PhaseProcessing {
			s.Phase = PhaseScanning
		}
		return s, nil

	case Extracted:
		if !s.Busy || e.Attempt != s.Attempt {
			return s, nil
		}
		s.Busy = false
		if s.Phase != PhaseProcessing {
			// the session moved on while this attempt was in flight
			return s, nil
		}
		if epic.Valid(e.Identifier) {
			s.Phase = PhaseFound
			s.LastResult = e.Identifier
			return stopTimer(s, nil)
		}
		s.Phase = PhaseScanning
		if s.Trigger == TriggerOnDemand {
			return s, []Effect{Notify{Message: NoMatchMessage}}
		}
		return s, nil

	case Reset:
		if s.Phase == PhaseIdle {
			return s, nil
		}
		// Busy is left alone: an attempt still in flight keeps the gate closed
		// until its result arrives and is discarded.
		s.ID = e.ID
		s.Phase = PhaseScanning
		s.LastResult = ""
		return startTimer(s, nil)
	}

	return s, nil
}

func gateOpen(s Session) bool {
	return !s.Busy && s.LastResult == ""
}

func begin(s Session, trigger Trigger) Session {
	s.Phase = PhaseProcessing
	s.Busy = true
	s.Trigger = trigger
	s.Attempt++
	return s
}

func startTimer(s Session, effects []Effect) (Session, []Effect) {
	if s.TimerActive {
		return s, effects
	}
	s.TimerActive = true
	return s, append(effects, StartTimer{})
}

func stopTimer(s Session, effects []Effect) (Session, []Effect) {
	if !s.TimerActive {
		return s, effects
	}
	s.TimerActive = false
	return s, append(effects, StopTimer{})
}
