package yasubscription

import (
	"sync"
)

// DefaultLimit is the capacity used by NewManager when limit is not positive.
const DefaultLimit = 20

// Manager keeps at most limit live subscriptions. Adding past the limit
// cancels and drops the oldest entry.
type Manager struct {
	mu    sync.Mutex
	limit int
	subs  []Subscription
}

// NewManager creates a Manager with the given capacity.
//
// Example usage:
//
//	callbacks := yasubscription.NewManager(20)
//	callbacks.Add(input.OnCallback(sent, handler))
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Manager{
		limit: limit,
		subs:  make([]Subscription, 0, limit),
	}
}

// Add tracks sub, evicting the oldest entries while at capacity.
func (m *Manager) Add(sub Subscription) {
	if sub == nil {
		return
	}

	m.mu.Lock()

	var evicted []Subscription

	for len(m.subs) >= m.limit {
		evicted = append(evicted, m.subs[0])
		m.subs[0] = nil
		m.subs = m.subs[1:]
	}

	m.subs = append(m.subs, sub)
	m.mu.Unlock()

	for _, old := range evicted {
		old.Unsubscribe()
	}
}

// Delete cancels sub and stops tracking it. It reports whether sub was tracked.
func (m *Manager) Delete(sub Subscription) bool {
	if sub == nil {
		return false
	}

	m.mu.Lock()

	index := -1

	for i, tracked := range m.subs {
		if tracked.ID() == sub.ID() {
			index = i

			break
		}
	}

	if index == -1 {
		m.mu.Unlock()

		return false
	}

	found := m.subs[index]
	m.subs = append(m.subs[:index], m.subs[index+1:]...)
	m.mu.Unlock()

	found.Unsubscribe()

	return true
}

// Dispose cancels every tracked subscription and empties the manager.
func (m *Manager) Dispose() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make([]Subscription, 0, m.limit)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Len returns the number of tracked subscriptions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subs)
}
