// Package statemachine implements a small guarded finite state machine.
//
//	const (
//		Idle    = statemachine.StringState("idle")
//		Running = statemachine.StringState("running")
//		Start   = statemachine.StringEvent("start")
//	)
//
//	sm := statemachine.MustNew(Idle,
//		statemachine.WithTransition(Idle, Running, Start),
//		statemachine.WithListener(func(from, to statemachine.State, ev statemachine.Event) {
//			log.Info("transition", "from", from.Name(), "to", to.Name())
//		}),
//	)
//	if err := sm.Fire(ctx, Start, nil); err != nil {
//		// statemachine.IsNoTransition(err) for an illegal event
//	}
//
// Firing an event with no registered transition from the current state
// returns a *NoTransitionError and leaves the state unchanged.
package statemachine
