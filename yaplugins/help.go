package yaplugins

import (
	"context"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/dlclark/regexp2"
)

var helpPattern = yapattern.MustCompile(`^[!/]\s?(help|помощь|команды|хелп)\b`, regexp2.None)

const HelpText = `Команды, которые я понимаю:
!скажи(!echo) <текст> - повторить текст
!roll [число|диапазон|dice] - случайный бросок кубиков
!тихо(!silence) - режим тишины на 5 минут, !!тихо на 30 (модераторы)
!бан(!ban) <id>, !разбан(!unban) <id> - бан пользователя (админы)
!команды(!help) - список команд`

// Help lists the commands.
type Help struct {
	deps *yabot.Dependencies
	subscriptions
}

// NewHelp is the Help provider.
func NewHelp(deps *yabot.Dependencies) (yabot.Plugin, yaerrors.Error) {
	return &Help{deps: deps}, nil
}

func (h *Help) Name() string {
	return "Help"
}

func (h *Help) Init(context.Context) yaerrors.Error {
	h.add(h.deps.Input.OnPattern(helpPattern, func(ctx context.Context, match *yainput.TextMatch) yaerrors.Error {
		_, err := h.deps.Responder.Reply(ctx, match.Message, HelpText)

		return err
	}))

	return nil
}

func (h *Help) Dispose(context.Context) yaerrors.Error {
	h.unsubscribe()

	return nil
}
