package yainput

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/YaCodeDev/GoYaBotCore/yasubscription"
	"github.com/dlclark/regexp2"
)

// Input is the event surface handed to plugins.
type Input interface {
	// OnMessage delivers every message that passes the filter chain.
	OnMessage(handler MessageHandler, onError ...MessageErrorHandler) yasubscription.Subscription

	// OnText compiles expr and delivers every text message it matches.
	// A malformed expression is returned as is and nothing is subscribed.
	//
	// Example usage:
	//
	//	sub, err := input.OnText(`^!echo (.+)`, func(ctx context.Context, m *yainput.TextMatch) yaerrors.Error {
	//		return reply(ctx, m.Message, m.Group(1))
	//	})
	OnText(expr string, handler TextMatchHandler, onError ...MessageErrorHandler) (yasubscription.Subscription, error)

	// OnPattern is OnText for an already compiled pattern.
	OnPattern(pattern *yapattern.Pattern, handler TextMatchHandler, onError ...MessageErrorHandler) yasubscription.Subscription

	// OnCallback delivers callback queries pressed on forMessage only.
	OnCallback(forMessage *Message, handler CallbackHandler, onError ...CallbackErrorHandler) yasubscription.Subscription

	// Filter returns a new input narrowed by filters. The receiver is not changed.
	Filter(filters ...Filter) Input

	// InstallGlobalFilter adds filter to the live filter list of this input.
	// A non-empty rejectReason logs every rejection. Unsubscribing removes
	// exactly this filter.
	InstallGlobalFilter(filter Filter, rejectReason string) yasubscription.Subscription

	// ExclusiveMatch returns a first-match-wins router fed by this input.
	ExclusiveMatch() *ExclusiveTextInput
}

type filterEntry struct {
	filter Filter
}

// FilteredInput applies a mutable filter list to the streams of its parent and
// multicasts the result to its own subscribers.
type FilteredInput struct {
	log      yalogger.Logger
	shutdown <-chan struct{}

	filtersMu sync.RWMutex
	filters   []*filterEntry

	messages  *broadcast[*Message]
	callbacks *broadcast[*CallbackQuery]
}

func newFilteredInput(
	log yalogger.Logger,
	shutdown <-chan struct{},
	parentMessages *broadcast[*Message],
	parentCallbacks *broadcast[*CallbackQuery],
	filters []Filter,
) *FilteredInput {
	input := &FilteredInput{
		log:      log,
		shutdown: shutdown,
		filters:  make([]*filterEntry, 0, len(filters)),
	}

	for _, filter := range filters {
		input.filters = append(input.filters, &filterEntry{filter: filter})
	}

	input.messages = newBroadcast[*Message](func() func() {
		return parentMessages.subscribe(func(ev event[*Message]) {
			if allowMessage(input.snapshot(), ev.value) {
				input.messages.publish(ev)
			}
		})
	})

	input.callbacks = newBroadcast[*CallbackQuery](func() func() {
		return parentCallbacks.subscribe(func(ev event[*CallbackQuery]) {
			if allowCallbackQuery(input.snapshot(), ev.value) {
				input.callbacks.publish(ev)
			}
		})
	})

	return input
}

func (fi *FilteredInput) snapshot() []Filter {
	fi.filtersMu.RLock()
	defer fi.filtersMu.RUnlock()

	filters := make([]Filter, 0, len(fi.filters))
	for _, entry := range fi.filters {
		filters = append(filters, entry.filter)
	}

	return filters
}

func (fi *FilteredInput) OnMessage(handler MessageHandler, onError ...MessageErrorHandler) yasubscription.Subscription {
	return subscribeLeaf(fi.messages, fi.shutdown, func(ev event[*Message]) {
		invoke(ev.ctx, fi.log, func() yaerrors.Error {
			return handler(ev.ctx, ev.value)
		}, messageErrors(ev.ctx, ev.value, onError))
	})
}

func (fi *FilteredInput) OnText(
	expr string,
	handler TextMatchHandler,
	onError ...MessageErrorHandler,
) (yasubscription.Subscription, error) {
	pattern, err := yapattern.Compile(expr, regexp2.None)
	if err != nil {
		return nil, err
	}

	return fi.OnPattern(pattern, handler, onError...), nil
}

func (fi *FilteredInput) OnPattern(
	pattern *yapattern.Pattern,
	handler TextMatchHandler,
	onError ...MessageErrorHandler,
) yasubscription.Subscription {
	return subscribeLeaf(fi.messages, fi.shutdown, func(ev event[*Message]) {
		msg := ev.value
		if msg.Text == nil {
			return
		}

		invoke(ev.ctx, fi.log, func() yaerrors.Error {
			match, err := pattern.FindStringSubmatch(*msg.Text)
			if err != nil {
				return yaerrors.FromError(
					http.StatusInternalServerError,
					err,
					"failed to match pattern "+pattern.String(),
				)
			}

			if match == nil {
				return nil
			}

			return handler(ev.ctx, &TextMatch{Message: msg, Match: match})
		}, messageErrors(ev.ctx, msg, onError))
	})
}

func (fi *FilteredInput) OnCallback(
	forMessage *Message,
	handler CallbackHandler,
	onError ...CallbackErrorHandler,
) yasubscription.Subscription {
	messageID := forMessage.ID
	chatID := forMessage.Chat.ID

	return subscribeLeaf(fi.callbacks, fi.shutdown, func(ev event[*CallbackQuery]) {
		query := ev.value
		if query.Message == nil || query.Message.ID != messageID || query.Message.Chat.ID != chatID {
			return
		}

		invoke(ev.ctx, fi.log, func() yaerrors.Error {
			return handler(ev.ctx, query)
		}, callbackErrors(ev.ctx, query, onError))
	})
}

func (fi *FilteredInput) Filter(filters ...Filter) Input {
	return newFilteredInput(fi.log, fi.shutdown, fi.messages, fi.callbacks, slices.Clone(filters))
}

func (fi *FilteredInput) InstallGlobalFilter(filter Filter, rejectReason string) yasubscription.Subscription {
	if rejectReason != "" {
		filter = NewLoggingFilter(filter, rejectReason, fi.log)
	}

	entry := &filterEntry{filter: filter}

	fi.filtersMu.Lock()
	fi.filters = append(fi.filters, entry)
	fi.filtersMu.Unlock()

	return yasubscription.New(func() {
		fi.filtersMu.Lock()
		defer fi.filtersMu.Unlock()

		fi.filters = slices.DeleteFunc(fi.filters, func(other *filterEntry) bool {
			return other == entry
		})
	})
}

func (fi *FilteredInput) ExclusiveMatch() *ExclusiveTextInput {
	return newExclusiveTextInput(fi)
}

func subscribeLeaf[T any](
	stream *broadcast[T],
	shutdown <-chan struct{},
	handle func(event[T]),
) yasubscription.Subscription {
	box := newMailbox[T]()
	remove := stream.subscribe(func(ev event[T]) {
		box.deliver(shutdown, ev)
	})

	go box.run(shutdown, handle)

	return yasubscription.New(func() {
		remove()
		box.close()
	})
}

func backgroundIfNil(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}

	return ctx
}
