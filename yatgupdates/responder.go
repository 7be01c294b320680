package yatgupdates

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
)

// API is the subset of *tg.Client the Responder calls.
type API interface {
	MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	MessagesEditMessage(ctx context.Context, request *tg.MessagesEditMessageRequest) (tg.UpdatesClass, error)
	MessagesSetBotCallbackAnswer(ctx context.Context, request *tg.MessagesSetBotCallbackAnswerRequest) (bool, error)
}

// Responder implements yabot.Responder over MTProto. It relies on the Origin
// stored in Raw by ConvertMessage and ConvertCallbackQuery.
type Responder struct {
	api API
	log yalogger.Logger
}

var _ yabot.Responder = (*Responder)(nil)

// NewResponder creates a Responder.
//
// Example usage:
//
//	responder := yatgupdates.NewResponder(client.API(), log)
func NewResponder(api API, log yalogger.Logger) *Responder {
	return &Responder{api: api, log: log}
}

func (r *Responder) Reply(ctx context.Context, to *yainput.Message, text string) (*yainput.Message, yaerrors.Error) {
	return r.ReplyWithButtons(ctx, to, text, nil)
}

func (r *Responder) ReplyWithButtons(
	ctx context.Context,
	to *yainput.Message,
	text string,
	buttons [][]yabot.Button,
) (*yainput.Message, yaerrors.Error) {
	peer, err := peerOf(to.Raw)
	if err != nil {
		return nil, err.Wrap("failed to reply")
	}

	request := &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		ReplyTo:  &tg.InputReplyToMessage{ReplyToMsgID: to.ID},
		RandomID: rand.Int63(), //nolint:gosec // random id only deduplicates sends
	}

	if len(buttons) > 0 {
		request.ReplyMarkup = inlineMarkup(buttons)
	}

	updates, sendErr := r.api.MessagesSendMessage(ctx, request)
	if sendErr != nil {
		return nil, r.fromRPCError(sendErr, "failed to send message")
	}

	id, date, ok := sentMessage(updates, request.RandomID)
	if !ok {
		return nil, yaerrors.FromError(http.StatusBadGateway, ErrNoSentMessage, "failed to reply")
	}

	return &yainput.Message{
		ID:   id,
		Chat: to.Chat,
		Text: yainput.StringPtr(text),
		Date: date,
		Raw:  &Origin{Peer: peer},
	}, nil
}

func (r *Responder) EditText(
	ctx context.Context,
	msg *yainput.Message,
	text string,
	buttons [][]yabot.Button,
) yaerrors.Error {
	peer, err := peerOf(msg.Raw)
	if err != nil {
		return err.Wrap("failed to edit message")
	}

	if _, editErr := r.api.MessagesEditMessage(ctx, &tg.MessagesEditMessageRequest{
		Peer:        peer,
		ID:          msg.ID,
		Message:     text,
		ReplyMarkup: inlineMarkup(buttons),
	}); editErr != nil {
		return r.fromRPCError(editErr, "failed to edit message")
	}

	return nil
}

func (r *Responder) AnswerCallback(ctx context.Context, query *yainput.CallbackQuery, text string) yaerrors.Error {
	origin, ok := query.Raw.(*Origin)
	if !ok {
		return yaerrors.FromError(http.StatusBadRequest, ErrUnknownPeer, "failed to answer callback")
	}

	if _, err := r.api.MessagesSetBotCallbackAnswer(ctx, &tg.MessagesSetBotCallbackAnswerRequest{
		QueryID: origin.QueryID,
		Message: text,
	}); err != nil {
		return r.fromRPCError(err, "failed to answer callback")
	}

	return nil
}

func (r *Responder) fromRPCError(err error, msg string) yaerrors.Error {
	code := http.StatusBadGateway

	var rpcErr *tgerr.Error
	if errors.As(err, &rpcErr) {
		r.log.Warnf("Telegram RPC error %s (%d)", rpcErr.Type, rpcErr.Code)

		if rpcErr.Code >= http.StatusBadRequest && rpcErr.Code < http.StatusInternalServerError {
			code = rpcErr.Code
		}
	}

	return yaerrors.FromError(code, err, msg)
}

func peerOf(raw any) (tg.InputPeerClass, yaerrors.Error) {
	origin, ok := raw.(*Origin)
	if !ok || origin.Peer == nil {
		return nil, yaerrors.FromError(http.StatusBadRequest, ErrUnknownPeer, "no peer")
	}

	return origin.Peer, nil
}

func inlineMarkup(buttons [][]yabot.Button) *tg.ReplyInlineMarkup {
	rows := make([]tg.KeyboardButtonRow, 0, len(buttons))

	for _, row := range buttons {
		line := tg.KeyboardButtonRow{Buttons: make([]tg.KeyboardButtonClass, 0, len(row))}

		for _, button := range row {
			line.Buttons = append(line.Buttons, &tg.KeyboardButtonCallback{
				Text: button.Text,
				Data: []byte(button.Data),
			})
		}

		rows = append(rows, line)
	}

	return &tg.ReplyInlineMarkup{Rows: rows}
}

func sentMessage(updates tg.UpdatesClass, randomID int64) (int, time.Time, bool) {
	switch u := updates.(type) {
	case *tg.UpdateShortSentMessage:
		return u.ID, time.Unix(int64(u.Date), 0), true
	case *tg.Updates:
		for _, update := range u.Updates {
			if sent, ok := update.(*tg.UpdateMessageID); ok && sent.RandomID == randomID {
				return sent.ID, time.Unix(int64(u.Date), 0), true
			}
		}

		for _, update := range u.Updates {
			var class tg.MessageClass

			switch v := update.(type) {
			case *tg.UpdateNewMessage:
				class = v.Message
			case *tg.UpdateNewChannelMessage:
				class = v.Message
			default:
				continue
			}

			if msg, ok := class.(*tg.Message); ok {
				return msg.ID, time.Unix(int64(msg.Date), 0), true
			}
		}
	}

	return 0, time.Time{}, false
}
