package yainput

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/YaCodeDev/GoYaBotCore/yasubscription"
	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

// ExclusiveInput registers text handlers of which at most one runs per message.
type ExclusiveInput interface {
	OnText(expr string, handler TextMatchHandler, onError ...MessageErrorHandler) (yasubscription.Subscription, error)
	OnPattern(pattern *yapattern.Pattern, handler TextMatchHandler, onError ...MessageErrorHandler) yasubscription.Subscription
	Filter(filters ...Filter) ExclusiveInput
}

type exclusiveEntry struct {
	id      uuid.UUID
	pattern *yapattern.Pattern
	filters []Filter
	handler TextMatchHandler
	onError []MessageErrorHandler
	removed atomic.Bool
	box     *mailbox[*TextMatch]
}

// ExclusiveTextInput tries registered patterns in registration order and runs
// the handler of the first one that matches. Messages nobody matches are
// dropped. Matching happens on the router's goroutine; the chosen handler runs
// on the goroutine of its registration, so a slow handler only delays later
// messages routed to the same registration.
type ExclusiveTextInput struct {
	log      yalogger.Logger
	shutdown <-chan struct{}

	mu      sync.RWMutex
	entries []*exclusiveEntry

	source yasubscription.Subscription
}

func newExclusiveTextInput(input *FilteredInput) *ExclusiveTextInput {
	router := &ExclusiveTextInput{log: input.log, shutdown: input.shutdown}

	router.source = subscribeLeaf(input.messages, input.shutdown, func(ev event[*Message]) {
		if ev.value.Text != nil {
			router.dispatch(ev)
		}
	})

	return router
}

func (r *ExclusiveTextInput) dispatch(ev event[*Message]) {
	msg := ev.value

	r.mu.RLock()
	entries := slices.Clone(r.entries)
	r.mu.RUnlock()

	for _, entry := range entries {
		if entry.removed.Load() || !allowMessage(entry.filters, msg) {
			continue
		}

		match, err := entry.pattern.FindStringSubmatch(*msg.Text)
		if err != nil {
			loggerFor(ev.ctx, r.log).Warnf("Failed to match pattern %s: %v", entry.pattern.String(), err)

			continue
		}

		if match == nil {
			continue
		}

		if entry.removed.Load() {
			continue
		}

		entry.box.push(event[*TextMatch]{ctx: ev.ctx, value: &TextMatch{Message: msg, Match: match}})

		return
	}
}

func (r *ExclusiveTextInput) register(
	pattern *yapattern.Pattern,
	filters []Filter,
	handler TextMatchHandler,
	onError []MessageErrorHandler,
) yasubscription.Subscription {
	entry := &exclusiveEntry{
		id:      uuid.New(),
		pattern: pattern,
		filters: filters,
		handler: handler,
		onError: onError,
		box:     newMailbox[*TextMatch](),
	}

	go entry.box.run(r.shutdown, func(ev event[*TextMatch]) {
		invoke(ev.ctx, r.log, func() yaerrors.Error {
			return entry.handler(ev.ctx, ev.value)
		}, messageErrors(ev.ctx, ev.value.Message, entry.onError))
	})

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	return yasubscription.New(func() {
		entry.removed.Store(true)
		entry.box.close()

		r.mu.Lock()
		defer r.mu.Unlock()

		r.entries = slices.DeleteFunc(r.entries, func(other *exclusiveEntry) bool {
			return other.id == entry.id
		})
	})
}

func (r *ExclusiveTextInput) OnText(
	expr string,
	handler TextMatchHandler,
	onError ...MessageErrorHandler,
) (yasubscription.Subscription, error) {
	pattern, err := yapattern.Compile(expr, regexp2.None)
	if err != nil {
		return nil, err
	}

	return r.OnPattern(pattern, handler, onError...), nil
}

func (r *ExclusiveTextInput) OnPattern(
	pattern *yapattern.Pattern,
	handler TextMatchHandler,
	onError ...MessageErrorHandler,
) yasubscription.Subscription {
	return r.register(pattern, nil, handler, onError)
}

// Filter returns a view of this router whose registrations also require filters
// to pass. The registry, and so the priority order, is shared.
func (r *ExclusiveTextInput) Filter(filters ...Filter) ExclusiveInput {
	return &FilteredExclusiveInput{parent: r, filters: slices.Clone(filters)}
}

// Len returns the number of live registrations.
func (r *ExclusiveTextInput) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Close detaches the router from its input. Registrations stop firing.
func (r *ExclusiveTextInput) Close() {
	r.source.Unsubscribe()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries {
		entry.box.close()
	}
}

// FilteredExclusiveInput registers into a parent ExclusiveTextInput with extra
// filters checked before the pattern is tried.
type FilteredExclusiveInput struct {
	parent  *ExclusiveTextInput
	filters []Filter
}

func (f *FilteredExclusiveInput) OnText(
	expr string,
	handler TextMatchHandler,
	onError ...MessageErrorHandler,
) (yasubscription.Subscription, error) {
	pattern, err := yapattern.Compile(expr, regexp2.None)
	if err != nil {
		return nil, err
	}

	return f.OnPattern(pattern, handler, onError...), nil
}

func (f *FilteredExclusiveInput) OnPattern(
	pattern *yapattern.Pattern,
	handler TextMatchHandler,
	onError ...MessageErrorHandler,
) yasubscription.Subscription {
	return f.parent.register(pattern, f.filters, handler, onError)
}

func (f *FilteredExclusiveInput) Filter(filters ...Filter) ExclusiveInput {
	return &FilteredExclusiveInput{
		parent:  f.parent,
		filters: append(slices.Clone(f.filters), filters...),
	}
}
