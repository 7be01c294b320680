package yainput

import (
	"github.com/YaCodeDev/GoYaBotCore/yalogger"
)

// Filter gates whether an event reaches the subscribers of an input.
type Filter interface {
	AllowMessage(msg *Message) bool
	AllowCallbackQuery(query *CallbackQuery) bool
}

// LoggingFilter passes through the decision of the wrapped filter and logs
// every rejection with the configured reason.
type LoggingFilter struct {
	parent Filter
	reason string
	log    yalogger.Logger
}

// NewLoggingFilter wraps parent so that rejections are logged at info level.
//
// Example usage:
//
//	filter := yainput.NewLoggingFilter(factory.NotBanned(), "banned", log)
func NewLoggingFilter(parent Filter, reason string, log yalogger.Logger) *LoggingFilter {
	return &LoggingFilter{
		parent: parent,
		reason: reason,
		log:    log,
	}
}

func (f *LoggingFilter) AllowMessage(msg *Message) bool {
	allowed := f.parent.AllowMessage(msg)
	if !allowed {
		f.log.Infof("Rejected message [id=%d]: %s", msg.ID, f.reason)
	}

	return allowed
}

func (f *LoggingFilter) AllowCallbackQuery(query *CallbackQuery) bool {
	allowed := f.parent.AllowCallbackQuery(query)
	if !allowed {
		f.log.Infof("Rejected callback query [id=%s]: %s", query.ID, f.reason)
	}

	return allowed
}

func allowMessage(filters []Filter, msg *Message) bool {
	for _, filter := range filters {
		if !filter.AllowMessage(msg) {
			return false
		}
	}

	return true
}

func allowCallbackQuery(filters []Filter, query *CallbackQuery) bool {
	for _, filter := range filters {
		if !filter.AllowCallbackQuery(query) {
			return false
		}
	}

	return true
}
