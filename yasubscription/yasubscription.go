// Package yasubscription provides the cancellable handle returned by every
// registration in the bot core, plus a bounded collection of such handles.
package yasubscription

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is a live registration. Unsubscribe may be called any number
// of times; only the first call runs the teardown.
type Subscription interface {
	Unsubscribe()
	Closed() bool
	ID() uuid.UUID
}

type subscription struct {
	id       uuid.UUID
	once     sync.Once
	mu       sync.RWMutex
	closed   bool
	teardown func()
}

// New returns a Subscription that runs teardown on the first Unsubscribe.
// A nil teardown is allowed.
//
// Example usage:
//
//	sub := yasubscription.New(func() { close(done) })
//	defer sub.Unsubscribe()
func New(teardown func()) Subscription {
	return &subscription{
		id:       uuid.New(),
		teardown: teardown,
	}
}

// Empty returns an already closed Subscription.
func Empty() Subscription {
	sub := &subscription{id: uuid.New()}
	sub.Unsubscribe()

	return sub
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if s.teardown != nil {
			s.teardown()
		}
	})
}

func (s *subscription) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}

func (s *subscription) ID() uuid.UUID {
	return s.id
}

// Group unsubscribes every member together.
//
// Example usage:
//
//	sub := yasubscription.Group(input.OnText(...), input.OnCallback(...))
func Group(subs ...Subscription) Subscription {
	return New(func() {
		for _, sub := range subs {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	})
}
