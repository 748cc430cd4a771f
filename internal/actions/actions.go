// Package actions holds every button handler and registers them with the
// dispatch registry under the names used by ui keyboards.
package actions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/internal/chat"
	"github.com/m3rciful/walletbot/internal/dispatch"
	"github.com/m3rciful/walletbot/internal/domain"
	"github.com/m3rciful/walletbot/internal/flow"
	"github.com/m3rciful/walletbot/internal/remote"
	"github.com/m3rciful/walletbot/internal/session"
	"github.com/m3rciful/walletbot/internal/ui"
)

const defaultHistoryLimit = 10

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Store   *session.Store
	Machine *flow.Machine
	API     remote.Service
	// HistoryLimit caps the transactions page; 0 selects 10.
	HistoryLimit int
	Now          func() time.Time
}

// Handlers implements the actions. Construct with New.
type Handlers struct {
	store        *session.Store
	machine      *flow.Machine
	api          remote.Service
	historyLimit int
	now          func() time.Time
}

// New builds the handler set.
func New(d Deps) *Handlers {
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = defaultHistoryLimit
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handlers{
		store:        d.Store,
		machine:      d.Machine,
		api:          d.API,
		historyLimit: d.HistoryLimit,
		now:          d.Now,
	}
}

// Register adds every action to reg.
func Register(reg *dispatch.Registry, h *Handlers) error {
	table := []struct {
		name string
		fn   dispatch.Handler
	}{
		{ui.ActionMainMenu, h.mainMenu},
		{ui.ActionLogin, h.login},
		{ui.ActionLogout, h.logout},
		{ui.ActionHelp, h.help},
		{ui.ActionCancel, h.cancel},

		{ui.ActionBalance, h.authed(h.leaveMenu(h.balance))},
		{ui.ActionWalletMenu, h.authed(h.leaveMenu(h.walletMenu))},
		{ui.ActionTransferOptions, h.authed(h.leaveMenu(h.transferOptions))},
		{ui.ActionTransactions, h.authed(h.leaveMenu(h.transactions))},
		{ui.ActionProfile, h.authed(h.leaveMenu(h.profile))},
		{ui.ActionKYC, h.authed(h.leaveMenu(h.kyc))},

		{ui.ActionSetDefaultWallet, h.authed(h.menu(ui.ActionSetDefaultWallet, ui.ActionSelectDefaultWallet, ui.MsgChooseDefault))},
		{ui.ActionDeposit, h.authed(h.menu(ui.ActionDeposit, ui.ActionSelectDepositWallet, ui.MsgChooseDeposit))},
		{ui.ActionTransferWallet, h.authed(h.menu(ui.ActionTransferWallet, ui.ActionSelectTransferWallet, ui.MsgChooseTransfer))},
		{ui.ActionTransferEmail, h.authed(h.menu(ui.ActionTransferEmail, ui.ActionSelectEmailWallet, ui.MsgChooseTransfer))},
		{ui.ActionWithdraw, h.authed(h.menu(ui.ActionWithdraw, ui.ActionSelectWithdrawWallet, ui.MsgChooseWithdraw))},

		{ui.ActionSelectDefaultWallet, h.authed(h.leaveMenu(h.selectDefaultWallet))},
		{ui.ActionSelectDepositWallet, h.authed(h.leaveMenu(h.selectDepositWallet))},
		{ui.ActionSelectTransferWallet, h.authed(h.leaveMenu(h.selectTransferWallet))},
		{ui.ActionSelectEmailWallet, h.authed(h.leaveMenu(h.selectEmailWallet))},
		{ui.ActionSelectWithdrawWallet, h.authed(h.leaveMenu(h.selectWithdrawWallet))},
		{ui.ActionConfirmTransfer, h.authed(h.confirm(session.KindWallet, session.KindEmail))},
		{ui.ActionConfirmWithdraw, h.authed(h.confirm(session.KindWithdraw))},
	}
	for _, e := range table {
		if err := reg.Register(e.name, e.fn); err != nil {
			return err
		}
	}
	return nil
}

// authed answers "Please log in first" for users without a token.
func (h *Handlers) authed(next dispatch.Handler) dispatch.Handler {
	return func(ctx context.Context, req dispatch.Request) error {
		if !req.Session.Authenticated {
			_ = req.Reply.Acknowledge(ctx, ui.MsgLoginRequired)
			return show(ctx, req, ui.MsgLoginRequired, ui.MainMenu(false))
		}
		return next(ctx, req)
	}
}

// leaveMenu clears the open-menu marker once the handler succeeds.
func (h *Handlers) leaveMenu(next dispatch.Handler) dispatch.Handler {
	return func(ctx context.Context, req dispatch.Request) error {
		if err := next(ctx, req); err != nil {
			return err
		}
		if req.Session.CurrentAction == "" {
			return nil
		}
		_, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
			if s.CurrentAction == req.Session.CurrentAction {
				s.CurrentAction = ""
			}
			return nil
		})
		return err
	}
}

// menu renders a wallet selection list. A second press while the same list
// is open only answers the press.
func (h *Handlers) menu(name, selectAction, prompt string) dispatch.Handler {
	return func(ctx context.Context, req dispatch.Request) error {
		opened := false
		_, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
			if s.CurrentAction == name {
				return nil
			}
			s.CurrentAction = name
			opened = true
			return nil
		})
		if err != nil {
			return err
		}
		if !opened {
			logger.Debug(ctx, "dispatch", "menu.duplicate",
				slog.String("status", "skip"),
				slog.String("action", name),
			)
			return req.Reply.Acknowledge(ctx, ui.MsgMenuOpen)
		}

		wallets, err := h.wallets(ctx, req)
		if err != nil {
			return h.fail(ctx, req, err)
		}
		if len(wallets) == 0 {
			h.clearMenu(ctx, req.UserID, name)
			return show(ctx, req, ui.MsgNoWallets, ui.BackToMenu())
		}
		return show(ctx, req, prompt, ui.WalletSelection(wallets, selectAction))
	}
}

func (h *Handlers) clearMenu(ctx context.Context, userID, name string) {
	_, _ = h.store.Update(ctx, userID, func(s *session.Session) error {
		if s.CurrentAction == name {
			s.CurrentAction = ""
		}
		return nil
	})
}

// wallets returns the cached wallet list, fetching it on a miss.
func (h *Handlers) wallets(ctx context.Context, req dispatch.Request) ([]domain.Wallet, error) {
	if req.Session.CachedWallets != nil {
		logger.Debug(ctx, "dispatch", "wallets.cache", slog.String("cache", "hit"))
		return req.Session.CachedWallets, nil
	}
	wallets, err := h.api.ListWallets(ctx, req.Session.AuthToken)
	if err != nil {
		return nil, err
	}
	_, err = h.store.Update(ctx, req.UserID, func(s *session.Session) error {
		s.CachedWallets = wallets
		return nil
	})
	logger.Debug(ctx, "dispatch", "wallets.cache",
		slog.String("cache", "miss"),
		slog.Int("count", len(wallets)),
	)
	return wallets, err
}

// wallet resolves payload to one of the user's wallets.
func (h *Handlers) wallet(ctx context.Context, req dispatch.Request) (domain.Wallet, bool, error) {
	if req.Payload == "" {
		return domain.Wallet{}, false, nil
	}
	wallets, err := h.wallets(ctx, req)
	if err != nil {
		return domain.Wallet{}, false, err
	}
	w, ok := domain.FindWallet(wallets, req.Payload)
	return w, ok, nil
}

// fail shows a user-safe remote error, clears the menu marker and, for a
// rejected credential, logs the user out.
func (h *Handlers) fail(ctx context.Context, req dispatch.Request, err error) error {
	unauthorized := errors.Is(err, remote.ErrUnauthorized)
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("action", req.Action),
		slog.String("err", err.Error()),
	}
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, slog.String("err_code", apiErr.Code()))
	}
	logger.Warn(ctx, "dispatch", "action.remote", attrs...)

	_, _ = h.store.Update(ctx, req.UserID, func(s *session.Session) error {
		s.CurrentAction = ""
		if unauthorized {
			s.Logout()
		}
		return nil
	})
	kb := ui.BackToMenu()
	if unauthorized {
		kb = ui.MainMenu(false)
	}
	return show(ctx, req, ui.Failure(remote.UserMessage(err)), kb)
}

// show replaces the pressed message, or sends a new one when there is none.
func show(ctx context.Context, req dispatch.Request, text string, kb chat.Keyboard) error {
	return chat.EditOrSend(ctx, req.Reply, text, kb)
}
