package statemachine

import "context"

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Guard evaluates whether a transition may proceed.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs before the state changes. Returning an error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Listener observes applied transitions. It runs with the machine unlocked.
type Listener func(from, to State, event Event)

// Transition defines a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

// StateMachine defines the core finite state machine operations.
type StateMachine interface {
	Current() State
	Is(state State) bool
	Fire(ctx context.Context, event Event, data any) error
	CanFire(ctx context.Context, event Event, data any) bool
	Reset()
}

// StringState is a string-backed State.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a string-backed Event.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }
