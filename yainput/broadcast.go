package yainput

import (
	"context"
	"slices"
	"sync"
)

type event[T any] struct {
	ctx   context.Context
	value T
}

type sink[T any] struct {
	fn func(event[T])
}

// broadcast delivers every published event to each sink registered at publish
// time. attach is called when the first sink arrives and the function it
// returns when the last one leaves.
type broadcast[T any] struct {
	mu     sync.Mutex
	sinks  []*sink[T]
	attach func() func()
	detach func()
}

func newBroadcast[T any](attach func() func()) *broadcast[T] {
	return &broadcast[T]{attach: attach}
}

func (b *broadcast[T]) subscribe(fn func(event[T])) func() {
	s := &sink[T]{fn: fn}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sinks = append(b.sinks, s)

	if len(b.sinks) == 1 && b.attach != nil {
		b.detach = b.attach()
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			b.sinks = slices.DeleteFunc(slices.Clone(b.sinks), func(other *sink[T]) bool {
				return other == s
			})

			if len(b.sinks) == 0 && b.detach != nil {
				b.detach()
				b.detach = nil
			}
		})
	}
}

func (b *broadcast[T]) publish(ev event[T]) {
	b.mu.Lock()
	sinks := b.sinks
	b.mu.Unlock()

	for _, s := range sinks {
		s.fn(ev)
	}
}

func (b *broadcast[T]) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.sinks)
}

type delivery[T any] struct {
	ev      event[T]
	started chan struct{}
}

// mailbox queues events for a single subscription and hands them one at a
// time to its handler goroutine. Once closed, queued events are dropped and no
// handler starts.
type mailbox[T any] struct {
	mu     sync.Mutex
	queue  []delivery[T]
	busy   bool
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// push queues ev. If the subscription is idle, the returned channel is closed
// when its goroutine takes ev; it is nil when ev waits behind a running
// handler or the mailbox is closed.
func (m *mailbox[T]) push(ev event[T]) <-chan struct{} {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return nil
	}

	var started chan struct{}
	if !m.busy && len(m.queue) == 0 {
		started = make(chan struct{})
	}

	m.queue = append(m.queue, delivery[T]{ev: ev, started: started})
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}

	return started
}

// next takes the oldest delivery and marks the mailbox busy. It checks closed
// under the lock close takes, so nothing is taken after close returns.
func (m *mailbox[T]) next() (delivery[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || len(m.queue) == 0 {
		m.busy = false

		return delivery[T]{}, false
	}

	d := m.queue[0]
	m.queue[0] = delivery[T]{}
	m.queue = m.queue[1:]
	m.busy = true

	return d, true
}

// run drains the mailbox until it is closed or shutdown is closed.
func (m *mailbox[T]) run(shutdown <-chan struct{}, handle func(event[T])) {
	for {
		select {
		case <-m.done:
			return
		case <-shutdown:
			m.close()

			return
		case <-m.signal:
			for {
				d, ok := m.next()
				if !ok {
					break
				}

				if d.started != nil {
					close(d.started)
				}

				handle(d.ev)
			}
		}
	}
}

// deliver pushes ev and, when the subscription is idle, waits until its
// goroutine has taken ev. Publishing through deliver starts idle subscribers
// in the order they subscribed.
func (m *mailbox[T]) deliver(shutdown <-chan struct{}, ev event[T]) {
	started := m.push(ev)
	if started == nil {
		return
	}

	select {
	case <-started:
	case <-m.done:
	case <-shutdown:
	}
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true
	m.queue = nil
	close(m.done)
}
