// Package commands describes slash commands exposed by the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command binds a slash command to its handler. Action names the dispatch
// token the command resolves to, when it mirrors a button.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Action      string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Advertised reports whether the command belongs in the Telegram command menu.
func (c Command) Advertised() bool {
	return !c.Hidden && !c.AdminOnly
}
