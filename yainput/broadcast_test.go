package yainput

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilteredInput_AttachesLazily(t *testing.T) {
	t.Parallel()

	base, _ := test.NewNullLogger()
	hub := NewHub(yalogger.NewFromLogrus(base))

	t.Cleanup(hub.Close)

	child, ok := hub.Input().Filter().(*FilteredInput)
	assert.True(t, ok)

	grandchild := child.Filter()

	assert.Equal(t, 0, hub.messages.size())

	sub := grandchild.OnMessage(func(context.Context, *Message) yaerrors.Error { return nil })

	assert.Equal(t, 1, hub.messages.size())
	assert.Equal(t, 1, child.messages.size())

	second := child.OnMessage(func(context.Context, *Message) yaerrors.Error { return nil })

	assert.Equal(t, 2, child.messages.size())

	sub.Unsubscribe()
	assert.Equal(t, 1, hub.messages.size())

	second.Unsubscribe()
	assert.Equal(t, 0, hub.messages.size())
	assert.Equal(t, 0, hub.callbacks.size())
}

func TestMailbox_ClosedDropsEvents(t *testing.T) {
	t.Parallel()

	box := newMailbox[int]()
	box.push(event[int]{ctx: context.Background(), value: 1})
	box.close()
	box.close()
	assert.Nil(t, box.push(event[int]{ctx: context.Background(), value: 2}))

	handled := 0

	box.run(make(chan struct{}), func(event[int]) { handled++ })

	assert.Equal(t, 0, handled)
}

func TestMailbox_PushSignalsStartWhenIdle(t *testing.T) {
	t.Parallel()

	box := newMailbox[int]()
	shutdown := make(chan struct{})
	release := make(chan struct{})
	handled := make(chan int, 2)

	t.Cleanup(func() { close(shutdown) })

	go box.run(shutdown, func(ev event[int]) {
		handled <- ev.value
		<-release
	})

	started := box.push(event[int]{ctx: context.Background(), value: 1})
	require.NotNil(t, started)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never took the event")
	}

	assert.Equal(t, 1, <-handled)
	assert.Nil(t, box.push(event[int]{ctx: context.Background(), value: 2}), "busy mailbox queues without a start signal")

	close(release)
	assert.Equal(t, 2, <-handled)
}

func TestMailbox_NothingStartsAfterClose(t *testing.T) {
	t.Parallel()

	box := newMailbox[int]()
	shutdown := make(chan struct{})
	entered := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	var handled atomic.Int32

	t.Cleanup(func() { close(shutdown) })

	go func() {
		defer close(finished)

		box.run(shutdown, func(ev event[int]) {
			handled.Add(1)

			if ev.value == 1 {
				close(entered)
				<-release
			}
		})
	}()

	box.push(event[int]{ctx: context.Background(), value: 1})
	<-entered

	box.push(event[int]{ctx: context.Background(), value: 2})
	box.close()
	close(release)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("mailbox did not stop")
	}

	assert.Equal(t, int32(1), handled.Load())
}
