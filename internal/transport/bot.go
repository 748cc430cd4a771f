package transport

import (
	"context"
	"strconv"

	tg "github.com/m3rciful/walletbot/core/telegram"
	"github.com/m3rciful/walletbot/core/telegram/callbacks"
	"github.com/m3rciful/walletbot/core/telegram/commands"
	"github.com/m3rciful/walletbot/core/telegram/helpers"
	"github.com/m3rciful/walletbot/internal/dispatch"
	"github.com/m3rciful/walletbot/internal/flow"
	"github.com/m3rciful/walletbot/internal/session"
	"github.com/m3rciful/walletbot/internal/ui"

	tele "gopkg.in/telebot.v4"
)

// Options wires a Bot.
type Options struct {
	Router  *dispatch.Router
	Machine *flow.Machine
	Store   *session.Store
	// SendErrors reports failed outbound sends for /stats.
	SendErrors func() uint64
}

// Bot routes telebot updates into the dispatcher and the state machine.
type Bot struct {
	router     *dispatch.Router
	machine    *flow.Machine
	store      *session.Store
	sendErrors func() uint64
}

// New builds a Bot.
func New(opts Options) *Bot {
	if opts.SendErrors == nil {
		opts.SendErrors = func() uint64 { return 0 }
	}
	return &Bot{
		router:     opts.Router,
		machine:    opts.Machine,
		store:      opts.Store,
		sendErrors: opts.SendErrors,
	}
}

// UserKey is the session key for a Telegram user id.
func UserKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

type command struct {
	name        string
	action      string
	description string
	aliases     []string
}

// commandTable maps slash commands onto the same actions the buttons use.
var commandTable = []command{
	{"/start", ui.ActionMainMenu, "Open the main menu", []string{"menu"}},
	{"/help", ui.ActionHelp, "Show help", nil},
	{"/login", ui.ActionLogin, "Log in with your email", nil},
	{"/logout", ui.ActionLogout, "Log out", nil},
	{"/balance", ui.ActionBalance, "Show wallet balances", nil},
	{"/wallets", ui.ActionWalletMenu, "Manage wallets", nil},
	{"/send", ui.ActionTransferOptions, "Send funds", []string{"transfer"}},
	{"/withdraw", ui.ActionWithdraw, "Withdraw to an external address", nil},
	{"/deposit", ui.ActionDeposit, "Show a deposit address", nil},
	{"/history", ui.ActionTransactions, "Recent transactions", []string{"transactions"}},
	{"/profile", ui.ActionProfile, "Show your profile", nil},
	{"/kyc", ui.ActionKYC, "Show KYC status", nil},
	{"/cancel", ui.ActionCancel, "Cancel the current operation", nil},
}

// Register adds the user commands, the admin /stats command and the text fallback.
func (b *Bot) Register(reg *tg.Registry) {
	for _, cmd := range commandTable {
		reg.RegisterCommand(cmd.name, commands.Command{
			Handler:     b.Command(cmd.action),
			Description: cmd.description,
			Action:      cmd.action,
			Aliases:     cmd.aliases,
		})
	}
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     b.Stats,
		Description: "Runtime statistics",
		AdminOnly:   true,
	})
	reg.SetTextFallback(b.UnknownText)
}

// Command returns a handler that runs action through the dispatcher.
func (b *Bot) Command(action string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Sender() == nil {
			return nil
		}
		b.router.Dispatch(helpers.BuildContext(c), NewResponder(c), UserKey(c.Sender().ID), action)
		return nil
	}
}

// HandleCallback dispatches an inline button press. The router answers the
// callback query exactly once.
func (b *Bot) HandleCallback(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	b.router.Dispatch(helpers.BuildContext(c), NewResponder(c), UserKey(c.Sender().ID), callbacks.Data(c))
	return nil
}

// InProgress reports whether the user has a free-text step open.
func (b *Bot) InProgress(userID int64) bool {
	return b.machine.InProgress(context.Background(), UserKey(userID))
}

// ManagerHandler feeds free text to the state machine.
func (b *Bot) ManagerHandler(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	return b.machine.Handle(helpers.BuildContext(c), NewResponder(c), UserKey(c.Sender().ID), c.Text())
}

// UnknownText answers text that is neither a command nor part of a flow.
func (b *Bot) UnknownText(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := helpers.BuildContext(c)
	sess := b.store.Get(ctx, UserKey(c.Sender().ID))
	return NewResponder(c).Send(ctx, ui.MsgUseMenu, ui.MainMenu(sess.Authenticated))
}

// Stats shows session and sender diagnostics to the admin.
func (b *Bot) Stats(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	return NewResponder(c).Send(ctx, ui.Stats(b.store.Len(), b.store.Backend(), b.sendErrors()), nil)
}

// AdminReject answers non-admin callers of admin commands.
func (b *Bot) AdminReject(c tele.Context) error {
	return NewResponder(c).Send(helpers.BuildContext(c), ui.MsgAdminOnly, nil)
}

// OnLimited answers a throttled update.
func (b *Bot) OnLimited(c tele.Context) error {
	r := NewResponder(c)
	ctx := helpers.BuildContext(c)
	if c.Callback() != nil {
		return r.Acknowledge(ctx, ui.MsgSlowDown)
	}
	return r.Send(ctx, ui.MsgSlowDown, nil)
}
