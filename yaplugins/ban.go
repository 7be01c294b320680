package yaplugins

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/YaCodeDev/GoYaBotCore/yaroles"
	"github.com/dlclark/regexp2"
)

var banPattern = yapattern.MustCompile(`^!\s?(ban|unban|бан|разбан)\s+(\d+)\s*$`, regexp2.None)

// Ban lets admins ban and unban users by id. Bans go through the role
// repository, so they survive restarts when it is persistent.
type Ban struct {
	deps *yabot.Dependencies
	subscriptions
}

// NewBan is the Ban provider.
func NewBan(deps *yabot.Dependencies) (yabot.Plugin, yaerrors.Error) {
	return &Ban{deps: deps}, nil
}

func (b *Ban) Name() string {
	return "Ban"
}

func (b *Ban) Init(context.Context) yaerrors.Error {
	admins := b.deps.Input.Filter(b.deps.Filters.IsAdmin())

	b.add(admins.OnPattern(banPattern, b.handle))

	return nil
}

func (b *Ban) Dispose(context.Context) yaerrors.Error {
	b.unsubscribe()

	return nil
}

func (b *Ban) handle(ctx context.Context, match *yainput.TextMatch) yaerrors.Error {
	userID, parseErr := strconv.ParseInt(match.Group(2), 10, 64)
	if parseErr != nil {
		return nil
	}

	command := strings.ToLower(match.Group(1))

	var (
		err   yaerrors.Error
		reply string
	)

	if command == "ban" || command == "бан" {
		err = b.deps.Roles.Grant(ctx, userID, yaroles.RoleBanned)
		reply = fmt.Sprintf("Пользователь %d забанен.", userID)
	} else {
		err = b.deps.Roles.Revoke(ctx, userID, yaroles.RoleBanned)
		reply = fmt.Sprintf("Пользователь %d разбанен.", userID)
	}

	switch {
	case errors.Is(err, yaroles.ErrRoleNotFound):
		reply = fmt.Sprintf("Пользователь %d не забанен.", userID)
	case err != nil:
		return err.Wrap("failed to change ban")
	}

	b.deps.Log.WithUserID(match.Message.SenderID()).Infof("%s: %d", command, userID)

	_, err = b.deps.Responder.Reply(ctx, match.Message, reply)

	return err
}
