package pipeline

import (
	"fmt"
	"time"
)

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateError; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown pipeline state %q", text)
}

// StateChange describes one lifecycle transition. Err is set when To is StateError.
type StateChange struct {
	From State
	To   State
	Err  error
	At   time.Time
}

// Message returns the error message of an error transition, or "".
func (c StateChange) Message() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}
