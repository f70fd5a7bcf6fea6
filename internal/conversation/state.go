// Package conversation drives per-user chat sessions: a small state machine
// that decides how the next message is interpreted, and a dispatcher that maps
// commands onto catalog and interaction operations.
package conversation

import "fmt"

// State is where a user's conversation currently stands.
type State int

const (
	Idle State = iota
	AwaitingSearchTerm
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSearchTerm:
		return "awaiting_search_term"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event is the classified input that moves a session between states.
type Event int

const (
	// EventSearchCommand is a bare /search with no keywords.
	EventSearchCommand Event = iota
	// EventText is free text that is not a command.
	EventText
	EventCancel
	// EventCommand is any other command, including /search with keywords.
	EventCommand
)

func (e Event) String() string {
	switch e {
	case EventSearchCommand:
		return "search_command"
	case EventText:
		return "text"
	case EventCancel:
		return "cancel"
	case EventCommand:
		return "command"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

type transitionKey struct {
	from  State
	event Event
}

// Every (state, event) pair is listed; a missing pair is a programming error.
var transitions = map[transitionKey]State{
	{Idle, EventSearchCommand}: AwaitingSearchTerm,
	{Idle, EventText}:          Idle,
	{Idle, EventCancel}:        Idle,
	{Idle, EventCommand}:       Idle,

	{AwaitingSearchTerm, EventSearchCommand}: AwaitingSearchTerm,
	{AwaitingSearchTerm, EventText}:          Idle,
	{AwaitingSearchTerm, EventCancel}:        Idle,
	{AwaitingSearchTerm, EventCommand}:       Idle,
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	to, ok := transitions[transitionKey{s, e}]
	if !ok {
		return s, fmt.Errorf("no transition from %s on %s", s, e)
	}
	return to, nil
}
