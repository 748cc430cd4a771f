package telegram

import (
	"slices"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPoller(t *testing.T) {
	wh, ok := BuildPoller(PollerOptions{
		RunMode: "Webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	}).(*tele.Webhook)
	if !ok {
		t.Fatal("expected webhook poller")
	}
	if wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" {
		t.Fatalf("webhook = %+v", wh)
	}
	if !slices.Equal(wh.AllowedUpdates, DefaultAllowedUpdates) {
		t.Fatalf("webhook allowed updates = %v", wh.AllowedUpdates)
	}

	lp, ok := BuildPoller(PollerOptions{}).(*tele.LongPoller)
	if !ok || lp.Timeout != 10*time.Second {
		t.Fatalf("long poller = %+v", lp)
	}
	if !slices.Equal(lp.AllowedUpdates, DefaultAllowedUpdates) {
		t.Fatalf("long poller allowed updates = %v", lp.AllowedUpdates)
	}

	lp, _ = BuildPoller(PollerOptions{LongPollTimeoutSeconds: 25, AllowedUpdates: []string{"message"}}).(*tele.LongPoller)
	if lp.Timeout != 25*time.Second || len(lp.AllowedUpdates) != 1 {
		t.Fatalf("long poller = %+v", lp)
	}
}
