package yaplugins

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaenv"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yafilter"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/YaCodeDev/GoYaBotCore/yaroles"
	"github.com/YaCodeDev/GoYaBotCore/yascheduler"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

type outgoing struct {
	kind    string
	to      *yainput.Message
	text    string
	buttons [][]yabot.Button
	query   *yainput.CallbackQuery
}

type fakeResponder struct {
	nextID atomic.Int64
	sent   chan outgoing
}

func newFakeResponder() *fakeResponder {
	responder := &fakeResponder{sent: make(chan outgoing, 64)}
	responder.nextID.Store(1000)

	return responder
}

func (f *fakeResponder) Reply(ctx context.Context, to *yainput.Message, text string) (*yainput.Message, yaerrors.Error) {
	return f.ReplyWithButtons(ctx, to, text, nil)
}

func (f *fakeResponder) ReplyWithButtons(
	_ context.Context,
	to *yainput.Message,
	text string,
	buttons [][]yabot.Button,
) (*yainput.Message, yaerrors.Error) {
	f.sent <- outgoing{kind: "reply", to: to, text: text, buttons: buttons}

	return &yainput.Message{
		ID:   int(f.nextID.Add(1)),
		Chat: to.Chat,
		Text: yainput.StringPtr(text),
		Date: time.Now(),
	}, nil
}

func (f *fakeResponder) EditText(_ context.Context, msg *yainput.Message, text string, buttons [][]yabot.Button) yaerrors.Error {
	f.sent <- outgoing{kind: "edit", to: msg, text: text, buttons: buttons}

	return nil
}

func (f *fakeResponder) AnswerCallback(_ context.Context, query *yainput.CallbackQuery, text string) yaerrors.Error {
	f.sent <- outgoing{kind: "answer", text: text, query: query}

	return nil
}

func (f *fakeResponder) next(t *testing.T) outgoing {
	t.Helper()

	select {
	case out := <-f.sent:
		return out
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the bot to respond")

		return outgoing{}
	}
}

func (f *fakeResponder) requireQuiet(t *testing.T) {
	t.Helper()

	select {
	case out := <-f.sent:
		t.Fatalf("unexpected %s: %q", out.kind, out.text)
	case <-time.After(100 * time.Millisecond):
	}
}

type harness struct {
	deps      *yabot.Dependencies
	hub       *yainput.Hub
	roles     *yaroles.Service
	scheduler *yascheduler.Scheduler
	responder *fakeResponder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	base, _ := test.NewNullLogger()
	log := yalogger.NewFromLogrus(base)

	hub := yainput.NewHub(log)
	t.Cleanup(hub.Close)

	scheduler := yascheduler.New(context.Background(), log, yascheduler.Config{LowPriorityInterval: time.Hour})
	t.Cleanup(func() { _ = scheduler.Close() })

	roles := yaroles.NewService(yaroles.NewMemoryRepository(), log)
	filters := yafilter.NewFactory(roles, nil)
	responder := newFakeResponder()
	root := hub.Input()

	return &harness{
		deps: &yabot.Dependencies{
			Input:           root.Filter(filters.NotBanned()),
			UnfilteredInput: root,
			Filters:         filters,
			Roles:           roles,
			Scheduler:       scheduler,
			Env:             yaenv.New(log, time.Second),
			Log:             log,
			Responder:       responder,
		},
		hub:       hub,
		roles:     roles,
		scheduler: scheduler,
		responder: responder,
	}
}

func (h *harness) start(t *testing.T, provider yabot.Provider) yabot.Plugin {
	t.Helper()

	plugin, err := provider(h.deps)
	require.NoError(t, err)
	require.NoError(t, plugin.Init(context.Background()))

	t.Cleanup(func() {
		if disposer, ok := plugin.(yabot.Disposer); ok {
			_ = disposer.Dispose(context.Background())
		}
	})

	return plugin
}

func (h *harness) grant(t *testing.T, userID int64, role string) {
	t.Helper()

	require.NoError(t, h.roles.Grant(context.Background(), userID, role))
}

func (h *harness) send(msgs ...*yainput.Message) {
	for _, msg := range msgs {
		h.hub.HandleMessage(context.Background(), msg)
	}
}

var messageID atomic.Int64

func text(userID int64, body string) *yainput.Message {
	return &yainput.Message{
		ID:   int(messageID.Add(1)),
		Chat: yainput.Chat{ID: -100},
		From: &yainput.User{ID: userID, FirstName: "Ann", Username: "ann"},
		Text: yainput.StringPtr(body),
		Date: time.Now(),
	}
}
