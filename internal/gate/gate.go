// Package gate decides whether the bot should act on an inbound event at all,
// before any session state is touched.
package gate

import (
	"strings"

	"github.com/plumchat/sage-bot/internal/irisfast"
)

// Policy admits direct messages unconditionally. Group messages pass only
// when they mention the bot's handle or reply to one of the bot's own
// messages; everything else is dropped without a reply.
type Policy struct {
	handle string
	botID  string
}

func New(handle, botID string) *Policy {
	return &Policy{handle: strings.TrimSpace(handle), botID: strings.TrimSpace(botID)}
}

// Admit returns the normalized message text and whether the event is for the
// bot. A group message consisting of nothing but the mention token normalizes
// to the empty string and is still admitted; the caller owns the empty-input
// reply.
func (p *Policy) Admit(ev *irisfast.Message) (string, bool) {
	if ev == nil {
		return "", false
	}
	if ev.ChatType != irisfast.ChatGroup {
		return strings.TrimSpace(ev.Msg), true
	}

	if p.handle != "" && strings.Contains(ev.Msg, p.handle) {
		return strings.TrimSpace(strings.ReplaceAll(ev.Msg, p.handle, "")), true
	}
	if p.botID != "" && ev.ReplyTo == p.botID {
		return strings.TrimSpace(ev.Msg), true
	}
	return "", false
}
