package yainput_test

import (
	"context"
	"testing"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/sirupsen/logrus/hooks/test"
)

const waitTimeout = 2 * time.Second

type predicateFilter struct {
	message  func(msg *yainput.Message) bool
	callback func(query *yainput.CallbackQuery) bool
}

func (f predicateFilter) AllowMessage(msg *yainput.Message) bool {
	return f.message == nil || f.message(msg)
}

func (f predicateFilter) AllowCallbackQuery(query *yainput.CallbackQuery) bool {
	return f.callback == nil || f.callback(query)
}

func userFilter(users map[int64]bool, allow bool) predicateFilter {
	return predicateFilter{
		message: func(msg *yainput.Message) bool {
			return users[msg.SenderID()] == allow
		},
		callback: func(query *yainput.CallbackQuery) bool {
			return users[query.From.ID] == allow
		},
	}
}

func newHub(t *testing.T) (*yainput.Hub, *test.Hook) {
	t.Helper()

	base, hook := test.NewNullLogger()
	hub := yainput.NewHub(yalogger.NewFromLogrus(base))

	t.Cleanup(hub.Close)

	return hub, hook
}

func textMessage(id int, chatID, userID int64, text string) *yainput.Message {
	return &yainput.Message{
		ID:   id,
		Chat: yainput.Chat{ID: chatID},
		From: &yainput.User{ID: userID},
		Text: yainput.StringPtr(text),
		Date: time.Now(),
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for delivery")

		var zero T

		return zero
	}
}

func publish(hub *yainput.Hub, msgs ...*yainput.Message) {
	for _, msg := range msgs {
		hub.HandleMessage(context.Background(), msg)
	}
}
