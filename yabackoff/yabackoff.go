// Package yabackoff provides the exponential delay used between reconnect
// attempts of the transport client.
//
//	backoff := yabackoff.NewExponential(time.Second, 2, time.Minute)
//	for {
//	    if err := connect(ctx); err == nil {
//	        break
//	    }
//
//	    if err := backoff.Wait(ctx); err != nil {
//	        return err
//	    }
//	}
package yabackoff

import (
	"context"
	"time"
)

const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMultiplier      = 1.5
	DefaultMaxInterval     = 60 * time.Second
)

// Exponential multiplies the delay by a constant factor on every Next, capped
// at the max interval. The zero value uses the package defaults. Not safe for
// concurrent use.
type Exponential struct {
	initial    time.Duration
	multiplier float64
	max        time.Duration
	current    time.Duration
}

// NewExponential creates a back-off. Zero arguments fall back to defaults.
func NewExponential(initial time.Duration, multiplier float64, maxInterval time.Duration) Exponential {
	backoff := Exponential{initial: initial, multiplier: multiplier, max: maxInterval}
	backoff.defaults()

	return backoff
}

// Next returns the delay for this attempt and grows the next one.
func (e *Exponential) Next() time.Duration {
	e.defaults()

	delay := e.current
	e.current = min(time.Duration(float64(e.current)*e.multiplier), e.max)

	return delay
}

// Current returns what the next call to Next will return.
func (e *Exponential) Current() time.Duration {
	e.defaults()

	return e.current
}

// Reset starts over from the initial interval.
func (e *Exponential) Reset() {
	e.defaults()
	e.current = e.initial
}

// Wait sleeps for Next or until ctx is done, whichever comes first.
func (e *Exponential) Wait(ctx context.Context) error {
	timer := time.NewTimer(e.Next())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Exponential) defaults() {
	if e.initial <= 0 {
		e.initial = DefaultInitialInterval
	}

	if e.multiplier < 1 {
		e.multiplier = DefaultMultiplier
	}

	if e.max <= 0 {
		e.max = DefaultMaxInterval
	}

	if e.current <= 0 {
		e.current = e.initial
	}
}
