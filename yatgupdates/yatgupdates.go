// Package yatgupdates connects the bot core to Telegram through gotd/td.
//
// Bind turns MTProto updates into yabot.Update values, Responder answers
// through the raw API and Client wraps the gotd client with background
// connect, bot authorization and an optional SOCKS5 proxy.
package yatgupdates

import (
	"context"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/gotd/td/tg"
)

// Sink receives converted updates. *yabot.BotAPI implements it.
type Sink interface {
	OnUpdate(ctx context.Context, update yabot.Update)
}

// Bind registers handlers for new, edited and channel messages and for bot
// callback queries. Outgoing messages and non-text records such as service
// messages are skipped.
//
// Example usage:
//
//	dispatcher := tg.NewUpdateDispatcher()
//	yatgupdates.Bind(&dispatcher, bot)
func Bind(dispatcher *tg.UpdateDispatcher, sink Sink) {
	b := binder{sink: sink}

	dispatcher.OnNewMessage(b.handleNewMessage)
	dispatcher.OnEditMessage(b.handleEditMessage)
	dispatcher.OnNewChannelMessage(b.handleNewChannelMessage)
	dispatcher.OnEditChannelMessage(b.handleEditChannelMessage)
	dispatcher.OnBotCallbackQuery(b.handleBotCallbackQuery)
}

type binder struct {
	sink Sink
}

func (b binder) handleNewMessage(ctx context.Context, ent tg.Entities, upd *tg.UpdateNewMessage) error {
	b.forward(ctx, ent, upd.Message, int64(upd.Pts), false)

	return nil
}

func (b binder) handleEditMessage(ctx context.Context, ent tg.Entities, upd *tg.UpdateEditMessage) error {
	b.forward(ctx, ent, upd.Message, int64(upd.Pts), true)

	return nil
}

func (b binder) handleNewChannelMessage(
	ctx context.Context,
	ent tg.Entities,
	upd *tg.UpdateNewChannelMessage,
) error {
	b.forward(ctx, ent, upd.Message, int64(upd.Pts), false)

	return nil
}

func (b binder) handleEditChannelMessage(
	ctx context.Context,
	ent tg.Entities,
	upd *tg.UpdateEditChannelMessage,
) error {
	b.forward(ctx, ent, upd.Message, int64(upd.Pts), true)

	return nil
}

func (b binder) handleBotCallbackQuery(
	ctx context.Context,
	ent tg.Entities,
	upd *tg.UpdateBotCallbackQuery,
) error {
	b.sink.OnUpdate(ctx, yabot.Update{
		ID:            upd.QueryID,
		CallbackQuery: ConvertCallbackQuery(upd, ent),
	})

	return nil
}

func (b binder) forward(ctx context.Context, ent tg.Entities, class tg.MessageClass, id int64, edited bool) {
	msg, ok := class.(*tg.Message)
	if !ok || msg.Out {
		return
	}

	update := yabot.Update{ID: id}

	if edited {
		update.EditedMessage = ConvertMessage(msg, ent)
	} else {
		update.Message = ConvertMessage(msg, ent)
	}

	b.sink.OnUpdate(ctx, update)
}
