package yaplugins

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yaerrors"
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yapattern"
	"github.com/YaCodeDev/GoYaBotCore/yaroles"
	"github.com/YaCodeDev/GoYaBotCore/yasubscription"
	"github.com/dlclark/regexp2"
)

var silencePattern = yapattern.MustCompile(`^!(!)?\s*(тихо|тишина|quiet|silence)\s*$`, regexp2.None)

const (
	SilenceShort = 5 * time.Minute
	SilenceLong  = 30 * time.Minute
)

// Silence lets moderators mute everyone but admins for a while. "!тихо"
// lasts SilenceShort, "!!тихо" lasts SilenceLong.
type Silence struct {
	deps  *yabot.Dependencies
	short time.Duration
	long  time.Duration

	mu     sync.Mutex
	active []silenced
	subscriptions
}

type silenced struct {
	filter yasubscription.Subscription
	timer  yasubscription.Subscription
}

// NewSilence is the Silence provider.
func NewSilence(deps *yabot.Dependencies) (yabot.Plugin, yaerrors.Error) {
	return &Silence{deps: deps, short: SilenceShort, long: SilenceLong}, nil
}

func (s *Silence) Name() string {
	return "Silence"
}

func (s *Silence) Init(context.Context) yaerrors.Error {
	moderators := s.deps.Input.Filter(s.deps.Filters.HasRole(yaroles.RoleModerator))

	s.add(moderators.OnPattern(silencePattern, s.handle))

	return nil
}

// Dispose lifts every active silence.
func (s *Silence) Dispose(context.Context) yaerrors.Error {
	s.unsubscribe()

	s.mu.Lock()
	active := s.active
	s.active = nil
	s.mu.Unlock()

	for _, silence := range active {
		silence.timer.Unsubscribe()
		silence.filter.Unsubscribe()
	}

	return nil
}

func (s *Silence) handle(_ context.Context, match *yainput.TextMatch) yaerrors.Error {
	duration := s.short
	if match.Group(1) != "" {
		duration = s.long
	}

	until := time.Now().Add(duration).Format(time.DateTime)

	s.deps.Log.Infof("Activated silent mode until %s.", until)

	filter := s.deps.Input.InstallGlobalFilter(s.deps.Filters.IsAdmin(), "Silence until "+until)

	timer := s.deps.Scheduler.Schedule(func(context.Context) yaerrors.Error {
		filter.Unsubscribe()
		s.deps.Log.Info("Silent mode deactivated.")

		return nil
	}, duration)

	s.mu.Lock()
	s.active = slices.DeleteFunc(s.active, func(active silenced) bool {
		return active.filter.Closed()
	})
	s.active = append(s.active, silenced{filter: filter, timer: timer})
	s.mu.Unlock()

	return nil
}
