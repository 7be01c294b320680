// Package yaplugins holds the reference plugins shipped with the bot.
//
// Each plugin is built by a yabot.Provider from the shared Dependencies and
// registers its handlers in Init. Plugins that keep subscriptions release
// them in Dispose.
package yaplugins

import (
	"github.com/YaCodeDev/GoYaBotCore/yabot"
	"github.com/YaCodeDev/GoYaBotCore/yasubscription"
)

// Options tunes the providers returned by All.
type Options struct {
	// CallbackSubscriptionLimit bounds the live re-roll buttons.
	CallbackSubscriptionLimit int
}

// All returns the providers of every reference plugin.
//
// Example usage:
//
//	bot := yabot.New(hub, deps, yaplugins.All(yaplugins.Options{CallbackSubscriptionLimit: 20}), config)
func All(options Options) []yabot.Provider {
	return []yabot.Provider{
		NewUserCache,
		NewEcho,
		NewHelp,
		NewRoll(options.CallbackSubscriptionLimit),
		NewSilence,
		NewBan,
		NewGreeting,
	}
}

// subscriptions collects the handles a plugin registered in Init.
type subscriptions struct {
	subs []yasubscription.Subscription
}

func (s *subscriptions) add(sub yasubscription.Subscription) {
	s.subs = append(s.subs, sub)
}

func (s *subscriptions) unsubscribe() {
	yasubscription.Group(s.subs...).Unsubscribe()
	s.subs = nil
}
