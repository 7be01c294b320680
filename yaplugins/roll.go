package yaplugins

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaencoding"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/YaCodeDev/GoYaBotCore/yaratelimit"
	"github.com/YaCodeDev/GoYaBotCore/yasubscription"
	"github.com/dlclark/regexp2"
)

var rollPattern = yapattern.MustCompile(
	`^!\s*(roll|ролл)(?:\s+(d)?(\d+)\s*(?:(d|-)?\s*(\d+))?\s*)?$`,
	regexp2.None,
)

const (
	maxDice        = 100
	defaultFaces   = 20
	rerollButton   = "🎲 Ещё раз"
	tooManyDiceMsg = "Слишком много кубиков! У меня глаза разбегаются..."
	slowDownMsg    = "Не так быстро!"

	rollBurst  = 5
	rollWindow = 30 * time.Second
)

// RollKind tells dice rolls from range rolls.
type RollKind uint8

const (
	RollDice RollKind = iota + 1
	RollRange
)

// RollRequest is a parsed roll. It travels in the re-roll button payload.
type RollRequest struct {
	Kind RollKind `msgpack:"k"`
	A    int      `msgpack:"a"`
	B    int      `msgpack:"b"`
}

// ParseRoll turns the submatches of the roll command into a request. ok is
// false for malformed or out-of-range input, which is ignored silently.
//
//	!roll        d20
//	!roll d6     one six-sided die
//	!roll 3d6    three dice
//	!roll 10     1..10
//	!roll 5-10   5..10
func ParseRoll(match []string) (RollRequest, bool) {
	group := func(i int) string {
		if i < len(match) {
			return match[i]
		}

		return ""
	}

	number := func(i int) (int, bool) {
		n, err := strconv.Atoi(group(i))

		return n, err == nil
	}

	switch {
	case group(2) != "":
		faces, ok := number(3)
		if !ok || group(4) != "" || group(5) != "" {
			return RollRequest{}, false
		}

		return diceRequest(1, faces)
	case group(3) == "":
		return diceRequest(1, defaultFaces)
	case strings.EqualFold(group(4), "d"):
		count, okCount := number(3)
		faces, okFaces := number(5)

		if !okCount || !okFaces {
			return RollRequest{}, false
		}

		return diceRequest(count, faces)
	case group(5) != "":
		low, okLow := number(3)
		high, okHigh := number(5)

		if !okLow || !okHigh || low >= high || high-low+1 <= 0 {
			return RollRequest{}, false
		}

		return RollRequest{Kind: RollRange, A: low, B: high}, true
	default:
		high, ok := number(3)
		if !ok || high <= 1 {
			return RollRequest{}, false
		}

		return RollRequest{Kind: RollRange, A: 1, B: high}, true
	}
}

func (r RollRequest) valid() bool {
	switch r.Kind {
	case RollDice:
		return r.A > 0 && r.A <= maxDice && r.B > 0
	case RollRange:
		return r.A < r.B && r.B-r.A+1 > 0
	default:
		return false
	}
}

func diceRequest(count, faces int) (RollRequest, bool) {
	if count <= 0 || faces <= 0 {
		return RollRequest{}, false
	}

	return RollRequest{Kind: RollDice, A: count, B: faces}, true
}

// Roll rolls dice and random numbers and offers a re-roll button. Only the
// newest buttons stay live; older ones are released by the Manager. Rolls and
// re-rolls are rate limited per user.
type Roll struct {
	deps    *yabot.Dependencies
	buttons *yasubscription.Manager
	limiter *yaratelimit.Limiter
	random  func(n int) int
	subscriptions
}

// NewRoll returns the Roll provider keeping at most limit re-roll buttons.
func NewRoll(limit int) yabot.Provider {
	return func(deps *yabot.Dependencies) (yabot.Plugin, yaerrors.Error) {
		return &Roll{
			deps:    deps,
			buttons: yasubscription.NewManager(limit),
			limiter: yaratelimit.New(rollBurst, rollWindow),
			random:  rand.IntN,
		}, nil
	}
}

func (r *Roll) Name() string {
	return "Dice roll"
}

func (r *Roll) Init(context.Context) yaerrors.Error {
	r.add(r.deps.Input.OnPattern(rollPattern, r.handle))

	return nil
}

func (r *Roll) Dispose(context.Context) yaerrors.Error {
	r.unsubscribe()
	r.buttons.Dispose()

	return nil
}

func (r *Roll) handle(ctx context.Context, match *yainput.TextMatch) yaerrors.Error {
	request, ok := ParseRoll(match.Match)
	if !ok {
		return nil
	}

	if !r.limiter.Allow(match.Message.SenderID(), "roll") {
		r.deps.Log.WithUserID(match.Message.SenderID()).Debug("Roll rate limited")

		return nil
	}

	if request.Kind == RollDice && request.A > maxDice {
		_, err := r.deps.Responder.Reply(ctx, match.Message, tooManyDiceMsg)

		return err
	}

	payload, err := yaencoding.EncodeString(request)
	if err != nil {
		return err.Wrap("failed to encode roll")
	}

	sent, err := r.deps.Responder.ReplyWithButtons(
		ctx,
		match.Message,
		r.roll(request),
		[][]yabot.Button{{{Text: rerollButton, Data: payload}}},
	)
	if err != nil {
		return err.Wrap("failed to send roll")
	}

	r.buttons.Add(r.deps.Input.OnCallback(sent, func(ctx context.Context, query *yainput.CallbackQuery) yaerrors.Error {
		return r.reroll(ctx, sent, query)
	}))

	return nil
}

func (r *Roll) reroll(ctx context.Context, sent *yainput.Message, query *yainput.CallbackQuery) yaerrors.Error {
	if !r.limiter.Allow(query.From.ID, "reroll") {
		return r.deps.Responder.AnswerCallback(ctx, query, slowDownMsg)
	}

	request, err := yaencoding.DecodeString[RollRequest](query.Data)
	if err != nil {
		return err.Wrap("failed to decode roll button")
	}

	if !request.valid() {
		return yaerrors.FromString(http.StatusBadRequest, "invalid roll button payload")
	}

	if err := r.deps.Responder.EditText(ctx, sent, r.roll(*request), [][]yabot.Button{{
		{Text: rerollButton, Data: query.Data},
	}}); err != nil {
		return err.Wrap("failed to edit roll")
	}

	return r.deps.Responder.AnswerCallback(ctx, query, "")
}

func (r *Roll) roll(request RollRequest) string {
	if request.Kind == RollRange {
		return fmt.Sprintf("%d (%d-%d)", r.random(request.B-request.A+1)+request.A, request.A, request.B)
	}

	dice := make([]string, request.A)
	sum := 0

	for i := range dice {
		value := r.random(request.B) + 1
		sum += value
		dice[i] = strconv.Itoa(value)
	}

	if request.A == 1 {
		return fmt.Sprintf("%d (d%d)", sum, request.B)
	}

	return fmt.Sprintf("%s = %d (%dd%d)", strings.Join(dice, " + "), sum, request.A, request.B)
}
