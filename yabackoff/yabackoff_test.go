package yabackoff_test

import (
	"context"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabackoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_GrowsUntilCapped(t *testing.T) {
	t.Parallel()

	backoff := yabackoff.NewExponential(100*time.Millisecond, 2, 500*time.Millisecond)

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}

	for i, expected := range want {
		assert.Equal(t, expected, backoff.Next(), "step %d", i)
	}
}

func TestZeroValue_UsesDefaults(t *testing.T) {
	t.Parallel()

	var backoff yabackoff.Exponential

	assert.Equal(t, yabackoff.DefaultInitialInterval, backoff.Next())
	assert.Equal(
		t,
		time.Duration(float64(yabackoff.DefaultInitialInterval)*yabackoff.DefaultMultiplier),
		backoff.Current(),
	)
}

func TestReset_StartsOver(t *testing.T) {
	t.Parallel()

	backoff := yabackoff.NewExponential(time.Second, 3, time.Minute)
	backoff.Next()
	backoff.Next()

	backoff.Reset()

	assert.Equal(t, time.Second, backoff.Current())
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("[Elapsed] - returns nil", func(t *testing.T) {
		t.Parallel()

		backoff := yabackoff.NewExponential(time.Millisecond, 2, time.Millisecond)

		require.NoError(t, backoff.Wait(context.Background()))
	})

	t.Run("[Cancelled] - returns the context error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		backoff := yabackoff.NewExponential(time.Hour, 2, time.Hour)

		assert.ErrorIs(t, backoff.Wait(ctx), context.Canceled)
	})
}
