package helpers

import (
	"errors"
	"testing"

	"github.com/m3rciful/walletbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

func TestIsNotModified(t *testing.T) {
	if !IsNotModified(errors.New("telegram: Bad Request: message is not modified: specified new message content (400)")) {
		t.Fatal("expected not-modified match")
	}
	if IsNotModified(errors.New("telegram: Bad Request: message to edit not found (400)")) {
		t.Fatal("unexpected match")
	}
	if IsNotModified(nil) {
		t.Fatal("nil is not an error")
	}
}

func TestRepliesTally(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{Message: &tele.Message{ID: 1}})
	if sent, edited, acked, kb := RepliesFrom(c).Snapshot(); sent != 0 || edited != 0 || acked || kb {
		t.Fatalf("untracked context must read empty")
	}

	TrackReplies(c)
	noteReply(c, false, nil)
	noteReply(c, true, &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{{Text: "a", Data: "a"}}}})
	noteAck(c)

	sent, edited, acked, kb := RepliesFrom(c).Snapshot()
	if sent != 1 || edited != 1 || !acked || !kb {
		t.Fatalf("sent=%d edited=%d acked=%v kb=%v", sent, edited, acked, kb)
	}
}

func TestAcknowledgeSkipsMessages(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{Message: &tele.Message{ID: 1}})
	TrackReplies(c)
	if err := Acknowledge(c, "ok"); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if _, _, acked, _ := RepliesFrom(c).Snapshot(); acked {
		t.Fatalf("message updates are never acknowledged")
	}
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{
		ID: 9,
		Callback: &tele.Callback{
			Sender:  &tele.User{ID: 42},
			Message: &tele.Message{ID: 3, Chat: &tele.Chat{ID: 42, Type: tele.ChatPrivate}},
			Data:    "select_default_wallet:w1",
		},
	})

	ctx := BuildContext(c)
	if logger.UserIDFrom(ctx) != 42 || logger.ChatIDFrom(ctx) != 42 || logger.UpdateIDFrom(ctx) != 9 {
		t.Fatalf("ids not propagated")
	}
	if got := logger.ActionFrom(ctx); got != "select_default_wallet" {
		t.Fatalf("action = %q", got)
	}
	if got := logger.ChatTypeFrom(ctx); got != "private" {
		t.Fatalf("chat type = %q", got)
	}
	if BuildContext(c) != ctx {
		t.Fatalf("context must be cached per update")
	}
	if logger.HandlerFrom(WithHandler(c, "callback")) != "callback" {
		t.Fatalf("handler not recorded")
	}
}
