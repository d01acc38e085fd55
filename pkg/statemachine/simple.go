package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// SimpleStateMachine is a thread-safe in-memory state machine.
// Transitions are indexed as [fromState][event][]Transition; the first
// transition whose guards all pass wins.
type SimpleStateMachine struct {
	initialState State
	currentState State
	transitions  map[string]map[string][]Transition
	listeners    []Listener
	mu           sync.RWMutex
}

// Option configures a state machine during construction.
type Option func(*SimpleStateMachine) error

// TransitionOption attaches guards and actions to a transition.
type TransitionOption func(*Transition)

// New creates a state machine with the given initial state.
func New(initialState State, opts ...Option) (*SimpleStateMachine, error) {
	if initialState == nil {
		return nil, ErrNilState
	}

	sm := &SimpleStateMachine{
		initialState: initialState,
		currentState: initialState,
		transitions:  make(map[string]map[string][]Transition),
	}
	for _, opt := range opts {
		if err := opt(sm); err != nil {
			return nil, err
		}
	}
	return sm, nil
}

// MustNew is New that panics on a configuration error.
func MustNew(initialState State, opts ...Option) *SimpleStateMachine {
	sm, err := New(initialState, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return sm
}

// WithTransition registers from --event--> to.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(sm *SimpleStateMachine) error {
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		return sm.addTransition(t)
	}
}

// WithTransitionFrom registers the same event and target for several source states.
func WithTransitionFrom(to State, event Event, from ...State) Option {
	return func(sm *SimpleStateMachine) error {
		for _, f := range from {
			if err := sm.addTransition(Transition{From: f, To: to, Event: event}); err != nil {
				return fmt.Errorf("transition %v->%v on %v: %w", nameOf(f), nameOf(to), nameOf(event), err)
			}
		}
		return nil
	}
}

// WithListener registers a callback invoked after every applied transition.
func WithListener(l Listener) Option {
	return func(sm *SimpleStateMachine) error {
		if l != nil {
			sm.listeners = append(sm.listeners, l)
		}
		return nil
	}
}

// WithGuard adds a guard to a transition.
func WithGuard(g Guard) TransitionOption {
	return func(t *Transition) {
		if g != nil {
			t.Guards = append(t.Guards, g)
		}
	}
}

// WithAction adds an action to a transition.
func WithAction(a Action) TransitionOption {
	return func(t *Transition) {
		if a != nil {
			t.Actions = append(t.Actions, a)
		}
	}
}

func (sm *SimpleStateMachine) addTransition(t Transition) error {
	if t.From == nil || t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}
	byEvent, ok := sm.transitions[t.From.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		sm.transitions[t.From.Name()] = byEvent
	}
	byEvent[t.Event.Name()] = append(byEvent[t.Event.Name()], t)
	return nil
}

// Current returns the current state.
func (sm *SimpleStateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// Is reports whether the machine is in state.
func (sm *SimpleStateMachine) Is(state State) bool {
	return state != nil && sm.Current().Name() == state.Name()
}

// Fire applies the first eligible transition for event.
func (sm *SimpleStateMachine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	sm.mu.Lock()
	from := sm.currentState
	t, err := sm.match(ctx, event, data)
	if err != nil {
		sm.mu.Unlock()
		return err
	}
	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			sm.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}
	sm.currentState = t.To
	listeners := sm.listeners
	sm.mu.Unlock()

	for _, l := range listeners {
		l(from, t.To, event)
	}
	return nil
}

// CanFire reports whether Fire would succeed, without running actions.
func (sm *SimpleStateMachine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, err := sm.match(ctx, event, data)
	return err == nil
}

// Reset returns the machine to its initial state.
func (sm *SimpleStateMachine) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.currentState = sm.initialState
}

// match must be called with sm.mu held.
func (sm *SimpleStateMachine) match(ctx context.Context, event Event, data any) (*Transition, error) {
	from := sm.currentState.Name()
	candidates := sm.transitions[from][event.Name()]
	if len(candidates) == 0 {
		return nil, &NoTransitionError{StateName: from, EventName: event.Name()}
	}

	for i := range candidates {
		t := &candidates[i]
		passed := true
		for _, guard := range t.Guards {
			if !guard(ctx, sm.currentState, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return t, nil
		}
	}
	return nil, &RejectedError{StateName: from, EventName: event.Name()}
}

func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}
