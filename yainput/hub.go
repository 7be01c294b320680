// Package yainput routes inbound chat events to plugin handlers.
//
// A Hub is fed by the transport and exposes the root FilteredInput. Every
// FilteredInput applies its filters synchronously on the publishing goroutine
// and multicasts accepted events. Each subscription owns a queue drained by its
// own goroutine, so one subscription never runs concurrently with itself and a
// slow handler does not hold up the others. Idle subscribers start on an event
// in the order they subscribed: publishing waits until each one has taken the
// event before offering it to the next. A subscriber still busy with an earlier
// event gets it queued without waiting. Unsubscribing drops whatever is still
// queued for that subscription, and no handler starts after Unsubscribe returns.
package yainput

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/YaCodeDev/GoYaBotCore/yalogger"
)

// Hub is the raw event surface: the transport pushes into it and the root
// input observes it.
type Hub struct {
	messages  *broadcast[*Message]
	callbacks *broadcast[*CallbackQuery]
	input     *FilteredInput

	shutdown  chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewHub creates a Hub whose root input has no filters.
//
// Example usage:
//
//	hub := yainput.NewHub(log)
//	defer hub.Close()
//
//	hub.Input().OnMessage(handler)
//	hub.HandleMessage(ctx, msg)
func NewHub(log yalogger.Logger) *Hub {
	hub := &Hub{
		messages:  newBroadcast[*Message](nil),
		callbacks: newBroadcast[*CallbackQuery](nil),
		shutdown:  make(chan struct{}),
	}

	hub.input = newFilteredInput(log, hub.shutdown, hub.messages, hub.callbacks, nil)

	return hub
}

// HandleMessage publishes msg. It returns once every filter has been evaluated
// and every idle subscriber has taken msg; handlers run asynchronously with ctx.
func (h *Hub) HandleMessage(ctx context.Context, msg *Message) {
	if msg == nil || h.closed.Load() {
		return
	}

	h.messages.publish(event[*Message]{ctx: backgroundIfNil(ctx), value: msg})
}

// HandleCallbackQuery publishes query.
func (h *Hub) HandleCallbackQuery(ctx context.Context, query *CallbackQuery) {
	if query == nil || h.closed.Load() {
		return
	}

	h.callbacks.publish(event[*CallbackQuery]{ctx: backgroundIfNil(ctx), value: query})
}

// Input returns the root input.
func (h *Hub) Input() *FilteredInput {
	return h.input
}

// Close stops accepting events and stops every subscription goroutine.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.shutdown)
	})
}
