// Package broadcast provides type-safe one-to-many message fan-out.
//
//	b := broadcast.NewMemoryBroadcaster[State](1, broadcast.WithReplayLatest())
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	_ = b.Broadcast(ctx, broadcast.Message[State]{Data: s})
//	for msg := range sub.Receive(ctx) {
//		render(msg.Data)
//	}
//
// Delivery never blocks the broadcaster. When a subscriber's buffer is full
// the oldest pending message is discarded, so consumers that only care about
// the current value (UI re-rendering, session snapshots) always see it.
// Subscribers are removed when their context is cancelled, when they are
// closed, or when the broadcaster is closed.
package broadcast
