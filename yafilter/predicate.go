package yafilter

import "github.com/YaCodeDev/GoYaBotCore/yainput"

type predicate struct {
	message  func(msg *yainput.Message) bool
	callback func(query *yainput.CallbackQuery) bool
}

func (p *predicate) AllowMessage(msg *yainput.Message) bool {
	return p.message(msg)
}

func (p *predicate) AllowCallbackQuery(query *yainput.CallbackQuery) bool {
	return p.callback(query)
}

// MessagePredicate filters messages with fn and lets every callback query through.
//
// Example usage:
//
//	private := yafilter.MessagePredicate(func(msg *yainput.Message) bool {
//		return msg.Chat.ID > 0
//	})
func MessagePredicate(fn func(msg *yainput.Message) bool) yainput.Filter {
	return &predicate{
		message:  fn,
		callback: func(*yainput.CallbackQuery) bool { return true },
	}
}

// CallbackPredicate filters callback queries with fn and lets every message through.
func CallbackPredicate(fn func(query *yainput.CallbackQuery) bool) yainput.Filter {
	return &predicate{
		message:  func(*yainput.Message) bool { return true },
		callback: fn,
	}
}

// AllOf passes an event only if every filter does, stopping at the first rejection.
func AllOf(filters ...yainput.Filter) yainput.Filter {
	return &predicate{
		message: func(msg *yainput.Message) bool {
			for _, filter := range filters {
				if !filter.AllowMessage(msg) {
					return false
				}
			}

			return true
		},
		callback: func(query *yainput.CallbackQuery) bool {
			for _, filter := range filters {
				if !filter.AllowCallbackQuery(query) {
					return false
				}
			}

			return true
		},
	}
}

// AnyOf passes an event if at least one filter does. AnyOf() rejects everything.
func AnyOf(filters ...yainput.Filter) yainput.Filter {
	return &predicate{
		message: func(msg *yainput.Message) bool {
			for _, filter := range filters {
				if filter.AllowMessage(msg) {
					return true
				}
			}

			return false
		},
		callback: func(query *yainput.CallbackQuery) bool {
			for _, filter := range filters {
				if filter.AllowCallbackQuery(query) {
					return true
				}
			}

			return false
		},
	}
}

// Not inverts filter.
func Not(filter yainput.Filter) yainput.Filter {
	return &predicate{
		message: func(msg *yainput.Message) bool {
			return !filter.AllowMessage(msg)
		},
		callback: func(query *yainput.CallbackQuery) bool {
			return !filter.AllowCallbackQuery(query)
		},
	}
}
