package yainput

import "time"

// User is the sender of a message or a callback query.
type User struct {
	ID        int64
	Username  string
	FirstName string
	IsBot     bool
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64
}

// Message is a transport message as seen by the router. Text is nil for
// messages without text (media, service messages). Raw keeps the transport
// record for responders that need it.
type Message struct {
	ID       int
	Chat     Chat
	From     *User
	Text     *string
	Date     time.Time
	EditDate time.Time
	Edited   bool
	Raw      any
}

// CallbackQuery is an inline button press. Message is the message that
// carried the button and may be nil for inline-mode results.
type CallbackQuery struct {
	ID      string
	From    User
	Message *Message
	Data    string
	Raw     any
}

// TextMatch pairs a text message with the submatches of the pattern it matched.
// Match[0] is the full match.
type TextMatch struct {
	Message *Message
	Match   []string
}

// Group returns submatch i or an empty string when out of range.
func (m *TextMatch) Group(i int) string {
	if i < 0 || i >= len(m.Match) {
		return ""
	}

	return m.Match[i]
}

// GetText returns the message text or an empty string.
func (m *Message) GetText() string {
	if m == nil || m.Text == nil {
		return ""
	}

	return *m.Text
}

// SenderID returns the sender id or 0 for anonymous messages.
func (m *Message) SenderID() int64 {
	if m == nil || m.From == nil {
		return 0
	}

	return m.From.ID
}

// StringPtr is a helper for building messages with text.
func StringPtr(s string) *string {
	return &s
}
