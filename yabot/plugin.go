package yabot

import (
	"context"

	"github.com/YaCodeDev/GoYaBotCore/yaenv"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yafilter"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
	"github.com/YaCodeDev/GoYaBotCore/yaroles"
	"github.com/YaCodeDev/GoYaBotCore/yascheduler"
	"gorm.io/gorm"
)

// Plugin is an independently developed command module. Init subscribes to the
// input it got from its Dependencies.
type Plugin interface {
	Name() string
	Init(ctx context.Context) yaerrors.Error
}

// Disposer is implemented by plugins that hold resources. Dispose runs once at
// shutdown, and only if Init succeeded.
type Disposer interface {
	Dispose(ctx context.Context) yaerrors.Error
}

// Provider constructs a plugin from the shared dependencies.
type Provider func(deps *Dependencies) (Plugin, yaerrors.Error)

// Dependencies is what every plugin can be built from.
//
// Input drops events from banned users and chats. UnfilteredInput sees
// everything and is meant for bookkeeping plugins only.
type Dependencies struct {
	Input           yainput.Input
	UnfilteredInput yainput.Input
	Filters         *yafilter.Factory
	Roles           *yaroles.Service
	Scheduler       *yascheduler.Scheduler
	Env             *yaenv.Environment
	Log             yalogger.Logger
	Responder       Responder
	DB              *gorm.DB
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Responder sends messages back through the transport.
type Responder interface {
	// Reply sends text in reply to msg and returns the sent message.
	Reply(ctx context.Context, to *yainput.Message, text string) (*yainput.Message, yaerrors.Error)

	// ReplyWithButtons is Reply with an inline keyboard, one slice per row.
	ReplyWithButtons(
		ctx context.Context,
		to *yainput.Message,
		text string,
		buttons [][]Button,
	) (*yainput.Message, yaerrors.Error)

	// EditText replaces the text and keyboard of a message sent by the bot.
	EditText(ctx context.Context, msg *yainput.Message, text string, buttons [][]Button) yaerrors.Error

	// AnswerCallback acknowledges a button press, optionally with a toast.
	AnswerCallback(ctx context.Context, query *yainput.CallbackQuery, text string) yaerrors.Error
}
