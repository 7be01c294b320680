package yatgupdates

import (
	"strconv"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/gotd/td/tg"
)

// channelIDOffset maps MTProto channel ids onto Bot API chat ids (-100xxxxxxxxxx).
const channelIDOffset int64 = -1000000000000

// Origin is stored in Message.Raw and CallbackQuery.Raw. It keeps what the
// Responder needs to answer through MTProto.
type Origin struct {
	Peer    tg.InputPeerClass
	QueryID int64
}

// ChatID converts a peer into a Bot API style chat id: users keep their id,
// basic groups are negated and channels get the -100 prefix.
func ChatID(peer tg.PeerClass) int64 {
	switch p := peer.(type) {
	case *tg.PeerUser:
		return p.UserID
	case *tg.PeerChat:
		return -p.ChatID
	case *tg.PeerChannel:
		return channelIDOffset - p.ChannelID
	default:
		return 0
	}
}

// ConvertMessage builds a router message from an MTProto message. The sender
// is resolved from FromID, or from the peer itself in private chats.
func ConvertMessage(msg *tg.Message, ent tg.Entities) *yainput.Message {
	out := &yainput.Message{
		ID:   msg.ID,
		Chat: yainput.Chat{ID: ChatID(msg.PeerID)},
		From: sender(msg.PeerID, msg.FromID, ent),
		Date: time.Unix(int64(msg.Date), 0),
		Raw:  &Origin{Peer: inputPeer(msg.PeerID, ent)},
	}

	if msg.Message != "" {
		out.Text = yainput.StringPtr(msg.Message)
	}

	if msg.EditDate != 0 {
		out.EditDate = time.Unix(int64(msg.EditDate), 0)
	}

	return out
}

// ConvertCallbackQuery builds a router callback query. Only the id and chat
// of the carrying message are known; its text stays nil.
func ConvertCallbackQuery(query *tg.UpdateBotCallbackQuery, ent tg.Entities) *yainput.CallbackQuery {
	origin := &Origin{
		Peer:    inputPeer(query.Peer, ent),
		QueryID: query.QueryID,
	}

	from := yainput.User{ID: query.UserID}
	if user, ok := ent.Users[query.UserID]; ok {
		from = convertUser(user)
	}

	return &yainput.CallbackQuery{
		ID:   strconv.FormatInt(query.QueryID, 10),
		From: from,
		Message: &yainput.Message{
			ID:   query.MsgID,
			Chat: yainput.Chat{ID: ChatID(query.Peer)},
			Raw:  origin,
		},
		Data: string(query.Data),
		Raw:  origin,
	}
}

func sender(peer tg.PeerClass, fromID tg.PeerClass, ent tg.Entities) *yainput.User {
	var userID int64

	if from, ok := fromID.(*tg.PeerUser); ok {
		userID = from.UserID
	} else if private, ok := peer.(*tg.PeerUser); ok && fromID == nil {
		userID = private.UserID
	} else {
		return nil
	}

	if user, ok := ent.Users[userID]; ok {
		converted := convertUser(user)

		return &converted
	}

	return &yainput.User{ID: userID}
}

func convertUser(user *tg.User) yainput.User {
	return yainput.User{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		IsBot:     user.Bot,
	}
}

func inputPeer(peer tg.PeerClass, ent tg.Entities) tg.InputPeerClass {
	switch p := peer.(type) {
	case *tg.PeerUser:
		user, ok := ent.Users[p.UserID]
		if !ok {
			return nil
		}

		return &tg.InputPeerUser{UserID: p.UserID, AccessHash: user.AccessHash}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}
	case *tg.PeerChannel:
		channel, ok := ent.Channels[p.ChannelID]
		if !ok {
			return nil
		}

		return &tg.InputPeerChannel{ChannelID: p.ChannelID, AccessHash: channel.AccessHash}
	default:
		return nil
	}
}
