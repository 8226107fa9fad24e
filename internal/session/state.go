package session

import "fmt"

// Kind tags the current session state
type Kind int

const (
	KindIdle Kind = iota
	KindHeating
	KindReady
	KindInProgress
	KindCompleted
	KindError
)

// String returns the state name
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "Idle"
	case KindHeating:
		return "Heating"
	case KindReady:
		return "Ready"
	case KindInProgress:
		return "InProgress"
	case KindCompleted:
		return "Completed"
	case KindError:
		return "Error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// State is the local treatment state. Only KindError carries a Message.
type State struct {
	Kind    Kind
	Message string
}

// Fixed states without payload.
var (
	Idle       = State{Kind: KindIdle}
	Heating    = State{Kind: KindHeating}
	Ready      = State{Kind: KindReady}
	InProgress = State{Kind: KindInProgress}
	Completed  = State{Kind: KindCompleted}
)

// Failed returns an Error state carrying message.
func Failed(message string) State {
	return State{Kind: KindError, Message: message}
}

// IsError reports whether s is an Error state
func (s State) IsError() bool {
	return s.Kind == KindError
}

// Active reports whether a treatment attempt is underway (heating, ready or treating)
func (s State) Active() bool {
	return s.Kind == KindHeating || s.Kind == KindReady || s.Kind == KindInProgress
}

// String returns the state name, with the message for Error states
func (s State) String() string {
	if s.Kind == KindError {
		return fmt.Sprintf("Error(%s)", s.Message)
	}
	return s.Kind.String()
}

// Label returns the status line shown to the user
func (s State) Label() string {
	switch s.Kind {
	case KindIdle:
		return "Idle"
	case KindHeating:
		return "Heating in progress..."
	case KindReady:
		return "Ready to start"
	case KindInProgress:
		return "Treatment in progress"
	case KindCompleted:
		return "Treatment completed!"
	case KindError:
		return "Error: " + s.Message
	default:
		return s.Kind.String()
	}
}
