package telegram

import (
	"testing"

	"github.com/m3rciful/walletbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	noop := func(tele.Context) error { return nil }
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Open the menu"})
	reg.RegisterCommand("/history", commands.Command{Handler: noop, Description: "History", Aliases: []string{"transactions"}})
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Stats", AdminOnly: true})
	reg.RegisterCommand("nostart", commands.Command{Handler: noop, Description: "bad"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "dup"})

	if got := len(reg.Commands()); got != 3 {
		t.Fatalf("commands = %d", got)
	}
	visible := reg.ListCommands(true)
	if len(visible) != 2 || visible[0].Text != "history" || visible[1].Text != "start" {
		t.Fatalf("visible = %+v", visible)
	}
	if key, _, ok := reg.LookupCommand("/transactions"); !ok || key != "/history" {
		t.Fatalf("alias lookup = %q, %v", key, ok)
	}
	if key, _, ok := reg.LookupCommand("/start@wallet_bot"); !ok || key != "/start" {
		t.Fatalf("mention lookup = %q, %v", key, ok)
	}
	if _, _, ok := reg.LookupCommand("hello there"); ok {
		t.Fatal("plain text must not match")
	}
}
