package yaplugins

import (
	"context"
	"fmt"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/dlclark/regexp2"
)

var (
	greetingPattern = yapattern.MustCompile(`\b(привет|здравствуй|hello|hi)\b`, regexp2.None)
	thanksPattern   = yapattern.MustCompile(`\b(спасибо|thanks)\b`, regexp2.None)
)

// Greeting answers casual greetings and thanks anywhere in a message. It uses
// an exclusive router, so a message with both gets a single answer.
type Greeting struct {
	deps      *yabot.Dependencies
	exclusive *yainput.ExclusiveTextInput
	subscriptions
}

// NewGreeting is the Greeting provider.
func NewGreeting(deps *yabot.Dependencies) (yabot.Plugin, yaerrors.Error) {
	return &Greeting{deps: deps}, nil
}

func (g *Greeting) Name() string {
	return "Greeting"
}

func (g *Greeting) Init(context.Context) yaerrors.Error {
	g.exclusive = g.deps.Input.ExclusiveMatch()

	g.add(g.exclusive.OnPattern(greetingPattern, func(ctx context.Context, match *yainput.TextMatch) yaerrors.Error {
		return g.reply(ctx, match.Message, fmt.Sprintf("Привет, %s!", displayName(match.Message.From)))
	}))

	g.add(g.exclusive.OnPattern(thanksPattern, func(ctx context.Context, match *yainput.TextMatch) yaerrors.Error {
		return g.reply(ctx, match.Message, "Всегда пожалуйста!")
	}))

	return nil
}

func (g *Greeting) Dispose(context.Context) yaerrors.Error {
	g.unsubscribe()

	if g.exclusive != nil {
		g.exclusive.Close()
	}

	return nil
}

func (g *Greeting) reply(ctx context.Context, to *yainput.Message, text string) yaerrors.Error {
	_, err := g.deps.Responder.Reply(ctx, to, text)

	return err
}

func displayName(user *yainput.User) string {
	switch {
	case user == nil:
		return "незнакомец"
	case user.FirstName != "":
		return user.FirstName
	case user.Username != "":
		return "@" + user.Username
	default:
		return fmt.Sprintf("id%d", user.ID)
	}
}
