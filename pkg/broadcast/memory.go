package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster fans messages out to in-process subscribers.
// Slow consumers lose intermediate messages, never the latest one.
// All methods are safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[*subscriber[T]]struct{}
	bufferSize  int
	replay      bool
	latest      *Message[T]
	closed      bool
	mu          sync.RWMutex
	cleanupWg   sync.WaitGroup
}

// Option configures a MemoryBroadcaster.
type Option func(*options)

type options struct {
	replay bool
}

// WithReplayLatest makes new subscribers receive the most recently
// broadcast message immediately on Subscribe.
func WithReplayLatest() Option {
	return func(o *options) { o.replay = true }
}

// NewMemoryBroadcaster creates a new in-memory broadcaster.
// A minimum buffer size of 1 is enforced.
func NewMemoryBroadcaster[T any](bufferSize int, opts ...Option) *MemoryBroadcaster[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &MemoryBroadcaster[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
		replay:      o.replay,
	}
}

// Subscribe creates a new subscriber that receives all subsequent messages.
// The subscription is removed when ctx is cancelled or the subscriber is
// closed. If the broadcaster is already closed, a closed subscriber is returned.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub := newSubscriber[T](b.bufferSize, nil)
		sub.shut()
		return sub
	}

	sub := newSubscriber(b.bufferSize, b.unsubscribe)
	b.subscribers[sub] = struct{}{}
	if b.replay && b.latest != nil {
		sub.send(*b.latest)
	}

	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			<-ctx.Done()
			_ = sub.Close()
		}()
	}

	return sub
}

// Broadcast sends a message to all active subscribers.
// It never blocks on a subscriber and has no effect after Close.
func (b *MemoryBroadcaster[T]) Broadcast(_ context.Context, msg Message[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	if b.replay {
		b.latest = &msg
	}
	for sub := range b.subscribers {
		sub.send(msg)
	}
	return nil
}

// Latest returns the most recently broadcast message when replay is enabled.
func (b *MemoryBroadcaster[T]) Latest() (Message[T], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.latest == nil {
		return Message[T]{}, false
	}
	return *b.latest, true
}

// Len returns the number of active subscribers.
func (b *MemoryBroadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close shuts down the broadcaster and closes all subscribers.
// It is safe to call Close multiple times.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscriber[T], 0, len(b.subscribers))
	for sub := range b.subscribers {
		subs = append(subs, sub)
	}
	clear(b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.shut()
	}
	return nil
}

// Wait blocks until every context-bound cleanup goroutine has finished.
func (b *MemoryBroadcaster[T]) Wait() {
	b.cleanupWg.Wait()
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
}
