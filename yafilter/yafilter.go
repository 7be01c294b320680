// Package yafilter builds the ready-made filters plugins narrow their input with.
package yafilter

import (
	"github.com/YaCodeDev/GoYaBotCore/yainput"
	"github.com/YaCodeDev/GoYaBotCore/yaroles"
)

// RoleChecker answers whether a user holds a role. *yaroles.Service implements it.
type RoleChecker interface {
	HasRole(userID int64, role string) bool
}

// Factory creates role and ban filters bound to one RoleChecker.
type Factory struct {
	roles       RoleChecker
	bannedChats map[int64]struct{}
}

// NewFactory creates a Factory. Messages from bannedChats are rejected by NotBanned.
//
// Example usage:
//
//	factory := yafilter.NewFactory(roles, cfg.BannedChats)
//	admins := input.Filter(factory.IsAdmin())
func NewFactory(roles RoleChecker, bannedChats []int64) *Factory {
	chats := make(map[int64]struct{}, len(bannedChats))
	for _, chatID := range bannedChats {
		chats[chatID] = struct{}{}
	}

	return &Factory{
		roles:       roles,
		bannedChats: chats,
	}
}

// HasRole passes users holding role. Admins pass every role except admin itself.
// Messages without a sender are rejected.
func (f *Factory) HasRole(role string) yainput.Filter {
	check := func(userID int64) bool {
		if f.roles.HasRole(userID, role) {
			return true
		}

		if role == yaroles.RoleAdmin {
			return false
		}

		return f.roles.HasRole(userID, yaroles.RoleAdmin)
	}

	return &predicate{
		message: func(msg *yainput.Message) bool {
			return msg.From != nil && check(msg.From.ID)
		},
		callback: func(query *yainput.CallbackQuery) bool {
			return check(query.From.ID)
		},
	}
}

// IsAdmin is HasRole(yaroles.RoleAdmin).
func (f *Factory) IsAdmin() yainput.Filter {
	return f.HasRole(yaroles.RoleAdmin)
}

// NotBanned rejects banned users and messages from banned chats. Callback
// queries are checked by sender only.
func (f *Factory) NotBanned() yainput.Filter {
	return &predicate{
		message: func(msg *yainput.Message) bool {
			if msg.From != nil && f.roles.HasRole(msg.From.ID, yaroles.RoleBanned) {
				return false
			}

			_, banned := f.bannedChats[msg.Chat.ID]

			return !banned
		},
		callback: func(query *yainput.CallbackQuery) bool {
			return !f.roles.HasRole(query.From.ID, yaroles.RoleBanned)
		},
	}
}
