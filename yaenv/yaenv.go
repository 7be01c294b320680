// Package yaenv holds the process shutdown hooks.
//
// Components register what must run before exit with OnDispose. Dispose runs
// every registered hook once, in registration order, within a timeout.
package yaenv

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/YaCodeDev/GoYaBotCore/yasubscription"
)

const DefaultDisposeTimeout = 60 * time.Second

// Hook is a shutdown hook.
type Hook func(ctx context.Context) yaerrors.Error

type hookEntry struct {
	hook Hook
}

// Environment is the shutdown hook registry shared through dependency injection.
type Environment struct {
	log     yalogger.Logger
	timeout time.Duration

	mu        sync.Mutex
	hooks     []*hookEntry
	disposing bool
}

// New creates an Environment. A non-positive timeout selects DefaultDisposeTimeout.
func New(log yalogger.Logger, timeout time.Duration) *Environment {
	if timeout <= 0 {
		timeout = DefaultDisposeTimeout
	}

	return &Environment{
		log:     log,
		timeout: timeout,
	}
}

// OnDispose registers hook. Unsubscribing removes it before it runs.
//
// Example usage:
//
//	env.OnDispose(func(ctx context.Context) yaerrors.Error {
//		return db.Close()
//	})
func (e *Environment) OnDispose(hook Hook) yasubscription.Subscription {
	entry := &hookEntry{hook: hook}

	e.mu.Lock()
	e.hooks = append(e.hooks, entry)
	e.mu.Unlock()

	return e.removal(entry)
}

// TryOnDispose is OnDispose that returns ErrAlreadyDisposing once Dispose has
// taken its hooks.
func (e *Environment) TryOnDispose(hook Hook) (yasubscription.Subscription, yaerrors.Error) {
	entry := &hookEntry{hook: hook}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposing {
		return nil, yaerrors.FromError(http.StatusConflict, ErrAlreadyDisposing, "failed to register dispose hook")
	}

	e.hooks = append(e.hooks, entry)

	return e.removal(entry), nil
}

// Timeout returns how long Dispose waits for the hooks.
func (e *Environment) Timeout() time.Duration {
	return e.timeout
}

func (e *Environment) removal(entry *hookEntry) yasubscription.Subscription {
	return yasubscription.New(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		e.hooks = slices.DeleteFunc(e.hooks, func(other *hookEntry) bool {
			return other == entry
		})
	})
}

// MarkCritical keeps shutdown waiting for work until it returns.
//
// Example usage:
//
//	err := env.MarkCritical(ctx, func(ctx context.Context) yaerrors.Error {
//		return saveQuote(ctx, quote)
//	})
func (e *Environment) MarkCritical(ctx context.Context, work Hook) yaerrors.Error {
	finished := make(chan struct{})

	sub := e.OnDispose(func(disposeCtx context.Context) yaerrors.Error {
		select {
		case <-finished:
			return nil
		case <-disposeCtx.Done():
			return yaerrors.FromError(http.StatusGatewayTimeout, disposeCtx.Err(), "critical work did not finish")
		}
	})

	defer func() {
		close(finished)
		sub.Unsubscribe()
	}()

	return safeRun(ctx, work)
}

// IsDisposing reports whether Dispose has been called.
func (e *Environment) IsDisposing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.disposing
}

// Dispose runs every hook once in registration order. Hook failures and
// panics are collected and do not stop the remaining hooks. If the hooks do
// not finish within the timeout, Dispose returns ErrDisposeTimeout without
// waiting further. A second call returns ErrAlreadyDisposing.
func (e *Environment) Dispose(ctx context.Context) yaerrors.Error {
	e.mu.Lock()

	if e.disposing {
		e.mu.Unlock()

		return yaerrors.FromError(http.StatusConflict, ErrAlreadyDisposing, "failed to dispose")
	}

	e.disposing = true
	hooks := slices.Clone(e.hooks)
	e.mu.Unlock()

	e.log.Infof("Disposing %d hooks", len(hooks))

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result := make(chan yaerrors.Error, 1)

	go func() {
		errs := make([]error, 0)

		for i, entry := range hooks {
			if err := safeRun(ctx, entry.hook); err != nil {
				e.log.Errorf("Dispose hook %d failed: %v", i, err)

				errs = append(errs, err)
			}
		}

		result <- yaerrors.Join(errs...)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		e.log.Errorf("Dispose did not finish in %s", e.timeout)

		return yaerrors.FromError(
			http.StatusGatewayTimeout,
			fmt.Errorf("%w: %w", ErrDisposeTimeout, ctx.Err()),
			"failed to dispose",
		)
	}
}

func safeRun(ctx context.Context, hook Hook) (err yaerrors.Error) {
	defer func() {
		if r := recover(); r != nil {
			err = yaerrors.FromPanic(r)
		}
	}()

	return hook(ctx)
}
