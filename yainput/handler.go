package yainput

import (
	"context"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/google/uuid"
)

// MessageHandler receives every message that passed the filters of an input.
type MessageHandler func(ctx context.Context, msg *Message) yaerrors.Error

// TextMatchHandler receives text messages matched by a pattern.
type TextMatchHandler func(ctx context.Context, match *TextMatch) yaerrors.Error

// CallbackHandler receives callback queries for one message.
type CallbackHandler func(ctx context.Context, query *CallbackQuery) yaerrors.Error

// MessageErrorHandler is called when a message or text handler fails or panics.
type MessageErrorHandler func(ctx context.Context, msg *Message, err yaerrors.Error)

// CallbackErrorHandler is called when a callback handler fails or panics.
type CallbackErrorHandler func(ctx context.Context, query *CallbackQuery, err yaerrors.Error)

type requestIDKey struct{}

// WithRequestID stores the id of the update being routed in ctx. Handler
// failures are logged with it.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID.
func RequestID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(uuid.UUID)

	return id, ok
}

func loggerFor(ctx context.Context, log yalogger.Logger) yalogger.Logger {
	if id, ok := RequestID(ctx); ok {
		return log.WithRequestUUID(id)
	}

	return log
}

// safeCall runs call and turns a panic into an Error.
func safeCall(call func() yaerrors.Error) (err yaerrors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = yaerrors.FromPanic(r)
		}
	}()

	return call()
}

// invoke runs a handler in isolation: errors and panics are logged and handed
// to every onError callback, which are isolated the same way.
func invoke(
	ctx context.Context,
	log yalogger.Logger,
	call func() yaerrors.Error,
	onError func(yaerrors.Error),
) {
	err := safeCall(call)
	if err == nil {
		return
	}

	log = loggerFor(ctx, log)
	log.Errorf("Handler failed: %v", err)

	if onError == nil {
		return
	}

	if handlerErr := safeCall(func() yaerrors.Error {
		onError(err)

		return nil
	}); handlerErr != nil {
		log.Errorf("Error handler failed: %v", handlerErr)
	}
}

func messageErrors(ctx context.Context, msg *Message, handlers []MessageErrorHandler) func(yaerrors.Error) {
	if len(handlers) == 0 {
		return nil
	}

	return func(err yaerrors.Error) {
		for _, handler := range handlers {
			handler(ctx, msg, err)
		}
	}
}

func callbackErrors(ctx context.Context, query *CallbackQuery, handlers []CallbackErrorHandler) func(yaerrors.Error) {
	if len(handlers) == 0 {
		return nil
	}

	return func(err yaerrors.Error) {
		for _, handler := range handlers {
			handler(ctx, query, err)
		}
	}
}
