package yaplugins

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/dlclark/regexp2"
)

var (
	echoPattern = yapattern.MustCompile(`^!\s?(echo|скажи)\s+([\s\S]+)`, regexp2.None)
	nyaSuffix   = yapattern.MustCompile(`ня+$`, regexp2.None)
)

// markupPrefix is skipped when capitalizing so that *bold* text still starts
// with a capital letter.
const markupPrefix = "_*`["

// Echo repeats "!echo <text>" back to the chat.
type Echo struct {
	deps *yabot.Dependencies
	subscriptions
}

// NewEcho is the Echo provider.
func NewEcho(deps *yabot.Dependencies) (yabot.Plugin, yaerrors.Error) {
	return &Echo{deps: deps}, nil
}

func (e *Echo) Name() string {
	return "Echo"
}

func (e *Echo) Init(context.Context) yaerrors.Error {
	e.add(e.deps.Input.OnPattern(echoPattern, e.handle))

	return nil
}

func (e *Echo) Dispose(context.Context) yaerrors.Error {
	e.unsubscribe()

	return nil
}

func (e *Echo) handle(ctx context.Context, match *yainput.TextMatch) yaerrors.Error {
	text := EchoText(match.Group(2))
	if text == "" {
		return nil
	}

	if _, err := e.deps.Responder.Reply(ctx, match.Message, text); err != nil {
		return err.Wrap("failed to echo")
	}

	return nil
}

// EchoText trims text, capitalizes its first letter after any markup
// characters and appends a heart to a trailing "ня".
func EchoText(text string) string {
	text = strings.TrimSpace(text)

	prefix := len(text) - len(strings.TrimLeft(text, markupPrefix))
	if first, size := utf8.DecodeRuneInString(text[prefix:]); size > 0 {
		text = text[:prefix] + string(unicode.ToUpper(first)) + text[prefix+size:]
	}

	if ok, _ := nyaSuffix.MatchString(text); ok {
		text += " ❤"
	}

	return text
}
