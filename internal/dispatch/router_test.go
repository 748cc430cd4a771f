package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/walletbot/internal/chat"
	"github.com/m3rciful/walletbot/internal/chat/chattest"
	"github.com/m3rciful/walletbot/internal/session"
)

func TestParseToken(t *testing.T) {
	cases := []struct {
		in            string
		name, payload string
		ok            bool
	}{
		{"main_menu", "main_menu", "", true},
		{"select_transfer_wallet:wallet-42", "select_transfer_wallet", "wallet-42", true},
		{"confirm_transfer:ab:cd", "confirm_transfer", "ab:cd", true},
		{"Main_Menu", "", "", false},
		{"menu1", "", "", false},
		{"menu:", "", "", false},
		{":payload", "", "", false},
		{"", "", "", false},
		{"\fmenu|x", "", "", false},
	}
	for _, tc := range cases {
		name, payload, ok := ParseToken(tc.in)
		if ok != tc.ok || name != tc.name || payload != tc.payload {
			t.Fatalf("ParseToken(%q) = %q, %q, %v", tc.in, name, payload, ok)
		}
	}
}

func TestRegistryRejectsDuplicatesAndBadNames(t *testing.T) {
	reg := NewRegistry()
	noop := func(context.Context, Request) error { return nil }
	if err := reg.Register("balance", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("balance", noop); err == nil {
		t.Fatal("duplicate must fail")
	}
	for _, bad := range []string{"", "Balance", "bal:ance", "bal-ance"} {
		if err := reg.Register(bad, noop); err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
	}
	if err := reg.Register("nil_handler", nil); err == nil {
		t.Fatal("nil handler must fail")
	}
}

func newRouter(t *testing.T, handlers map[string]Handler) (*Router, *session.Store) {
	t.Helper()
	reg := NewRegistry()
	for name, h := range handlers {
		reg.MustRegister(name, h)
	}
	store := session.NewStore(session.Options{})
	recovery := chat.Keyboard{chat.Row(chat.Button{Text: "Menu", Action: "main_menu"})}
	return NewRouter(reg, store, Options{Recovery: recovery}), store
}

func TestUnknownActionIsAcknowledged(t *testing.T) {
	router, store := newRouter(t, nil)
	rec := &chattest.Recorder{}

	router.Dispatch(context.Background(), rec, "u1", "frobnicate")

	if rec.AckCount() != 1 || rec.Acks[0] != defaultNotAvailable {
		t.Fatalf("acks = %v", rec.Acks)
	}
	if len(rec.Messages) != 0 {
		t.Fatalf("unexpected messages %+v", rec.Messages)
	}
	if store.Len() != 0 {
		t.Fatal("unknown action must not touch the session table")
	}
}

func TestHandlerReceivesPayloadAndSession(t *testing.T) {
	var got Request
	router, store := newRouter(t, map[string]Handler{
		"select_transfer_wallet": func(_ context.Context, req Request) error {
			got = req
			return nil
		},
	})
	_, _ = store.Update(context.Background(), "u1", func(s *session.Session) error {
		s.CurrentAction = "transfer_wallet"
		return nil
	})
	rec := &chattest.Recorder{}

	router.Dispatch(context.Background(), rec, "u1", "select_transfer_wallet:wallet-42")

	if got.UserID != "u1" || got.Action != "select_transfer_wallet" || got.Payload != "wallet-42" {
		t.Fatalf("request = %+v", got)
	}
	if got.Session.CurrentAction != "transfer_wallet" {
		t.Fatalf("session snapshot = %+v", got.Session)
	}
	if rec.AckCount() != 1 || rec.Acks[0] != "" {
		t.Fatalf("acks = %v", rec.Acks)
	}
}

func TestAcknowledgeExactlyOnce(t *testing.T) {
	router, _ := newRouter(t, map[string]Handler{
		"chatty": func(ctx context.Context, req Request) error {
			_ = req.Reply.Acknowledge(ctx, "first")
			_ = req.Reply.Acknowledge(ctx, "second")
			return nil
		},
		"failing": func(ctx context.Context, req Request) error {
			_ = req.Reply.Acknowledge(ctx, "before failure")
			return errors.New("boom")
		},
	})

	rec := &chattest.Recorder{}
	router.Dispatch(context.Background(), rec, "u1", "chatty")
	if rec.AckCount() != 1 || rec.Acks[0] != "first" {
		t.Fatalf("acks = %v", rec.Acks)
	}

	rec = &chattest.Recorder{}
	router.Dispatch(context.Background(), rec, "u1", "failing")
	if rec.AckCount() != 1 {
		t.Fatalf("acks = %v", rec.Acks)
	}
}

func TestHandlerErrorEditsWithRecoveryKeyboard(t *testing.T) {
	var store *session.Store
	router, store := newRouter(t, map[string]Handler{
		"transfer_wallet": func(ctx context.Context, req Request) error {
			_, _ = store.Update(ctx, req.UserID, func(s *session.Session) error {
				s.CurrentAction = "transfer_wallet"
				return nil
			})
			return errors.New("wallet api down")
		},
	})
	rec := &chattest.Recorder{}

	router.Dispatch(context.Background(), rec, "u1", "transfer_wallet")

	last := rec.Last()
	if !last.Edit || last.Text != defaultErrorText {
		t.Fatalf("last message = %+v", last)
	}
	if len(last.Keyboard) != 1 || last.Keyboard[0][0].Action != "main_menu" {
		t.Fatalf("recovery keyboard = %+v", last.Keyboard)
	}
	if got := store.Get(context.Background(), "u1").CurrentAction; got != "" {
		t.Fatalf("current action marker left behind: %q", got)
	}
}

func TestHandlerErrorFallsBackToSend(t *testing.T) {
	router, _ := newRouter(t, map[string]Handler{
		"balance": func(context.Context, Request) error { return errors.New("boom") },
	})
	rec := &chattest.Recorder{EditErr: errors.New("message to edit not found")}

	router.Dispatch(context.Background(), rec, "u1", "balance")

	last := rec.Last()
	if last.Edit || last.Text != defaultErrorText {
		t.Fatalf("expected a new message, got %+v", last)
	}
}

func TestHandlerErrorSwallowedWhenTransportFails(t *testing.T) {
	router, _ := newRouter(t, map[string]Handler{
		"balance": func(context.Context, Request) error { return errors.New("boom") },
	})
	rec := &chattest.Recorder{EditErr: errors.New("edit"), SendErr: errors.New("send"), AckErr: errors.New("ack")}

	router.Dispatch(context.Background(), rec, "u1", "balance")

	if rec.AckCount() != 1 {
		t.Fatalf("acks = %v", rec.Acks)
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	calls := 0
	router, _ := newRouter(t, map[string]Handler{
		"profile": func(context.Context, Request) error {
			calls++
			var m map[string]int
			m["boom"]++
			return nil
		},
	})
	rec := &chattest.Recorder{}

	router.Dispatch(context.Background(), rec, "u1", "profile")

	if calls != 1 {
		t.Fatalf("handler calls = %d", calls)
	}
	if rec.Last().Text != defaultErrorText || rec.AckCount() != 1 {
		t.Fatalf("messages = %+v acks = %v", rec.Messages, rec.Acks)
	}
}
