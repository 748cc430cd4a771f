package middleware

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestRateLimitThrottlesPerUser(t *testing.T) {
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })

	_ = h(tele.NewContext(nil, textUpdate(1, 7, "a")))
	_ = h(tele.NewContext(nil, textUpdate(2, 7, "b")))
	_ = h(tele.NewContext(nil, textUpdate(3, 8, "c")))
	if handled != 2 || limited != 1 {
		t.Fatalf("handled = %d, limited = %d", handled, limited)
	}

	cb := tele.Update{ID: 4, Callback: &tele.Callback{Sender: &tele.User{ID: 7}, Data: "balance"}}
	_ = h(tele.NewContext(nil, cb))
	if handled != 3 {
		t.Fatal("excluded callback should bypass the limiter")
	}
}

func TestUpdateKind(t *testing.T) {
	if got := UpdateKind(tele.Update{Callback: &tele.Callback{}}); got != "callback" {
		t.Fatalf("kind = %q", got)
	}
	if got := UpdateKind(tele.Update{Message: &tele.Message{}}); got != "message" {
		t.Fatalf("kind = %q", got)
	}
	if got := UpdateKind(tele.Update{}); got != "other" {
		t.Fatalf("kind = %q", got)
	}
}
