package yainput_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilteredInput_OnTextEcho(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	matches := make(chan *yainput.TextMatch, 4)

	_, err := hub.Input().OnText(`^!echo (.+)`, func(_ context.Context, m *yainput.TextMatch) yaerrors.Error {
		matches <- m

		return nil
	})
	require.NoError(t, err)

	publish(hub,
		textMessage(10, 5, 1, "!echo hi"),
		textMessage(11, 5, 1, "no command"),
		&yainput.Message{ID: 12, Chat: yainput.Chat{ID: 5}},
		textMessage(13, 5, 1, "!ECHO marker"),
	)

	first := receive(t, matches)
	assert.Equal(t, "hi", first.Group(1))
	assert.Equal(t, 10, first.Message.ID)
	assert.Equal(t, int64(5), first.Message.Chat.ID)

	second := receive(t, matches)
	assert.Equal(t, "marker", second.Group(1))
	assert.Equal(t, 13, second.Message.ID)
}

func TestFilteredInput_OnTextMalformed(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)

	sub, err := hub.Input().OnText(`(oops`, func(context.Context, *yainput.TextMatch) yaerrors.Error {
		return nil
	})

	require.Error(t, err)
	assert.Nil(t, sub)
}

func TestFilteredInput_FilterComposition(t *testing.T) {
	t.Parallel()

	const (
		admin       int64 = 1
		bannedAdmin int64 = 2
		user        int64 = 3
	)

	admins := map[int64]bool{admin: true, bannedAdmin: true}
	banned := map[int64]bool{bannedAdmin: true}

	hub, _ := newHub(t)
	root := hub.Input().Filter(userFilter(banned, false))
	adminOnly := root.Filter(userFilter(admins, true))

	rootSeen := make(chan int, 8)
	adminSeen := make(chan int, 8)

	root.OnMessage(func(_ context.Context, msg *yainput.Message) yaerrors.Error {
		rootSeen <- msg.ID

		return nil
	})
	adminOnly.OnMessage(func(_ context.Context, msg *yainput.Message) yaerrors.Error {
		adminSeen <- msg.ID

		return nil
	})

	publish(hub,
		textMessage(1, 1, bannedAdmin, "hello"),
		textMessage(2, 1, user, "hello"),
		textMessage(3, 1, admin, "hello"),
	)

	t.Run("[Root] - banned admin rejected, user passes", func(t *testing.T) {
		assert.Equal(t, 2, receive(t, rootSeen))
		assert.Equal(t, 3, receive(t, rootSeen))
	})

	t.Run("[AdminOnly] - only the admin passes", func(t *testing.T) {
		assert.Equal(t, 3, receive(t, adminSeen))
	})
}

func TestFilteredInput_GlobalFilterRoundTrip(t *testing.T) {
	t.Parallel()

	hub, hook := newHub(t)
	input := hub.Input()
	derived := input.Filter()
	seen := make(chan int, 8)

	derived.OnMessage(func(_ context.Context, msg *yainput.Message) yaerrors.Error {
		seen <- msg.ID

		return nil
	})

	silence := input.InstallGlobalFilter(predicateFilter{
		message: func(msg *yainput.Message) bool { return msg.SenderID() == 1 },
	}, "silence")

	publish(hub, textMessage(1, 1, 2, "muted"), textMessage(2, 1, 1, "allowed"))
	assert.Equal(t, 2, receive(t, seen))

	silence.Unsubscribe()
	silence.Unsubscribe()

	publish(hub, textMessage(3, 1, 2, "unmuted"))
	assert.Equal(t, 3, receive(t, seen))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Rejected message [id=1]: silence", hook.LastEntry().Message)
}

func TestFilteredInput_OnCallbackScoped(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	sent := textMessage(100, 5, 0, "roll")
	queries := make(chan string, 8)

	hub.Input().OnCallback(sent, func(_ context.Context, query *yainput.CallbackQuery) yaerrors.Error {
		queries <- query.ID

		return nil
	})

	for _, query := range []*yainput.CallbackQuery{
		{ID: "other-message", Data: "reroll", Message: textMessage(101, 5, 0, "roll")},
		{ID: "other-chat", Data: "reroll", Message: textMessage(100, 6, 0, "roll")},
		{ID: "inline", Data: "reroll"},
		{ID: "mine", Data: "reroll", Message: textMessage(100, 5, 0, "roll")},
	} {
		hub.HandleCallbackQuery(context.Background(), query)
	}

	assert.Equal(t, "mine", receive(t, queries))
}

func TestFilteredInput_HandlerIsolation(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	input := hub.Input()
	errs := make(chan yaerrors.Error, 4)
	seen := make(chan int, 4)

	input.OnMessage(func(context.Context, *yainput.Message) yaerrors.Error {
		panic("handler bug")
	}, func(_ context.Context, _ *yainput.Message, err yaerrors.Error) {
		errs <- err
	})
	input.OnMessage(func(context.Context, *yainput.Message) yaerrors.Error {
		return yaerrors.FromString(http.StatusBadGateway, "upstream")
	}, func(_ context.Context, _ *yainput.Message, err yaerrors.Error) {
		errs <- err
	})
	input.OnMessage(func(_ context.Context, msg *yainput.Message) yaerrors.Error {
		seen <- msg.ID

		return nil
	})

	publish(hub, textMessage(1, 1, 1, "a"), textMessage(2, 1, 1, "b"))

	assert.Equal(t, 1, receive(t, seen))
	assert.Equal(t, 2, receive(t, seen))

	var panics, failures int

	for range 4 {
		err := receive(t, errs)
		if assert.NotNil(t, err) && err.Code() == http.StatusBadGateway {
			failures++
		} else {
			panics++

			assert.ErrorIs(t, err, yaerrors.ErrPanic)
		}
	}

	assert.Equal(t, 2, panics)
	assert.Equal(t, 2, failures)
}

func TestFilteredInput_UnsubscribeDropsQueued(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	started := make(chan struct{})
	release := make(chan struct{})

	var calls atomic.Int32

	sub := hub.Input().OnMessage(func(context.Context, *yainput.Message) yaerrors.Error {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}

		return nil
	})

	publish(hub, textMessage(1, 1, 1, "a"), textMessage(2, 1, 1, "b"), textMessage(3, 1, 1, "c"))

	receive(t, started)
	sub.Unsubscribe()
	close(release)

	publish(hub, textMessage(4, 1, 1, "d"))

	assert.Never(t, func() bool { return calls.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.True(t, sub.Closed())
}

func TestFilteredInput_SlowHandlerDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	release := make(chan struct{})
	seen := make(chan int, 4)

	t.Cleanup(func() { close(release) })

	hub.Input().OnMessage(func(context.Context, *yainput.Message) yaerrors.Error {
		<-release

		return nil
	})
	hub.Input().OnMessage(func(_ context.Context, msg *yainput.Message) yaerrors.Error {
		seen <- msg.ID

		return nil
	})

	publish(hub, textMessage(1, 1, 1, "a"), textMessage(2, 1, 1, "b"))

	assert.Equal(t, 1, receive(t, seen))
	assert.Equal(t, 2, receive(t, seen))
}

func TestFilteredInput_SubscribersStartInOrder(t *testing.T) {
	t.Parallel()

	const count = 200

	hub, _ := newHub(t)

	var (
		mu    sync.Mutex
		order = map[int][]string{}
	)

	done := make(chan struct{}, 2)
	record := func(name string) yainput.MessageHandler {
		return func(_ context.Context, msg *yainput.Message) yaerrors.Error {
			mu.Lock()
			order[msg.ID] = append(order[msg.ID], name)
			mu.Unlock()

			done <- struct{}{}

			return nil
		}
	}

	hub.Input().OnMessage(record("first"))
	hub.Input().OnMessage(record("second"))

	for id := range count {
		publish(hub, textMessage(id, 1, 1, "hi"))

		receive(t, done)
		receive(t, done)
	}

	mu.Lock()
	defer mu.Unlock()

	for id := range count {
		assert.Equal(t, []string{"first", "second"}, order[id], "message %d", id)
	}
}

func TestFilteredInput_RequestIDReachesHandler(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)
	ids := make(chan bool, 1)

	hub.Input().OnMessage(func(ctx context.Context, _ *yainput.Message) yaerrors.Error {
		_, ok := yainput.RequestID(ctx)
		ids <- ok

		return nil
	})

	hub.HandleMessage(yainput.WithRequestID(context.Background(), [16]byte{1}), textMessage(1, 1, 1, "a"))

	assert.True(t, receive(t, ids))
}

func TestHub_ClosedIgnoresEvents(t *testing.T) {
	t.Parallel()

	hub, _ := newHub(t)

	var calls atomic.Int32

	hub.Input().OnMessage(func(context.Context, *yainput.Message) yaerrors.Error {
		calls.Add(1)

		return nil
	})

	hub.Close()
	hub.Close()
	publish(hub, textMessage(1, 1, 1, "late"))

	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}
