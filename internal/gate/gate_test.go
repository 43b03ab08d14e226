package gate

import (
	"testing"

	"github.com/plumchat/sage-bot/internal/irisfast"
)

func TestDirectMessageAlwaysAdmitted(t *testing.T) {
	p := New("@sage", "bot-1")
	text, ok := p.Admit(&irisfast.Message{ChatType: irisfast.ChatDirect, Msg: "  hello  "})
	if !ok {
		t.Fatalf("direct message must be admitted")
	}
	if text != "hello" {
		t.Fatalf("unexpected normalized text: %q", text)
	}
}

func TestGroupWithoutMentionDropped(t *testing.T) {
	p := New("@sage", "bot-1")
	if _, ok := p.Admit(&irisfast.Message{ChatType: irisfast.ChatGroup, Msg: "just chatting"}); ok {
		t.Fatalf("group message without mention or bot reply must not be admitted")
	}
}

func TestGroupMentionStripped(t *testing.T) {
	p := New("@sage", "bot-1")
	text, ok := p.Admit(&irisfast.Message{ChatType: irisfast.ChatGroup, Msg: "@sage what is Go?"})
	if !ok {
		t.Fatalf("mention must admit")
	}
	if text != "what is Go?" {
		t.Fatalf("mention token must be stripped, got %q", text)
	}
}

func TestGroupMentionOnlyAdmitsEmpty(t *testing.T) {
	p := New("@sage", "bot-1")
	text, ok := p.Admit(&irisfast.Message{ChatType: irisfast.ChatGroup, Msg: "@sage"})
	if !ok {
		t.Fatalf("mention-only message must still be admitted")
	}
	if text != "" {
		t.Fatalf("mention-only message must normalize to empty, got %q", text)
	}
}

func TestGroupReplyToBotAdmitted(t *testing.T) {
	p := New("@sage", "bot-1")
	text, ok := p.Admit(&irisfast.Message{ChatType: irisfast.ChatGroup, Msg: "tell me more", ReplyTo: "bot-1"})
	if !ok {
		t.Fatalf("reply to the bot must admit")
	}
	if text != "tell me more" {
		t.Fatalf("unexpected normalized text: %q", text)
	}
}

func TestGroupReplyToSomeoneElseDropped(t *testing.T) {
	p := New("@sage", "bot-1")
	if _, ok := p.Admit(&irisfast.Message{ChatType: irisfast.ChatGroup, Msg: "tell me more", ReplyTo: "user-9"}); ok {
		t.Fatalf("reply to another user must not admit")
	}
}
