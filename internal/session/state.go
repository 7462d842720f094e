package session

import "fmt"

// State is the lifecycle state of the controller
type State int

const (
	// Off: idle, no session
	Off State = iota
	// InSession: the camera is stepping and frames are gathered
	InSession
	// Canceling: a cancel was requested, waiting for in-flight work to settle
	Canceling
	// SavingShots: all frames are in, persisting or about to
	SavingShots
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case InSession:
		return "in-session"
	case Canceling:
		return "canceling"
	case SavingShots:
		return "saving-shots"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state for JSON status payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var transitions = map[State][]State{
	Off:         {InSession},
	InSession:   {Canceling, SavingShots},
	SavingShots: {Canceling, Off},
	Canceling:   {Off},
}

// CanTransition reports whether the state machine allows from -> to
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
