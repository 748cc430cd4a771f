package actions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/internal/dispatch"
	"github.com/m3rciful/walletbot/internal/domain"
	"github.com/m3rciful/walletbot/internal/flow"
	"github.com/m3rciful/walletbot/internal/remote"
	"github.com/m3rciful/walletbot/internal/session"
	"github.com/m3rciful/walletbot/internal/ui"
)

func (h *Handlers) mainMenu(ctx context.Context, req dispatch.Request) error {
	sess, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
		s.ResetFlow()
		return nil
	})
	if err != nil {
		return err
	}
	return show(ctx, req, ui.Welcome(sess), ui.MainMenu(sess.Authenticated))
}

func (h *Handlers) login(ctx context.Context, req dispatch.Request) error {
	err := h.machine.StartLogin(ctx, req.UserID)
	if errors.Is(err, flow.ErrAlreadyAuthenticated) {
		return show(ctx, req, ui.MsgAlreadyLoggedIn, ui.MainMenu(true))
	}
	if err != nil {
		return err
	}
	return show(ctx, req, ui.MsgAskEmail, ui.CancelOnly())
}

func (h *Handlers) logout(ctx context.Context, req dispatch.Request) error {
	h.machine.Logout(ctx, req.UserID)
	return show(ctx, req, ui.MsgLoggedOut, ui.MainMenu(false))
}

func (h *Handlers) help(ctx context.Context, req dispatch.Request) error {
	return show(ctx, req, ui.Help(), ui.BackToMenu())
}

func (h *Handlers) cancel(ctx context.Context, req dispatch.Request) error {
	text := ui.MsgNothingToCancel
	if h.machine.Cancel(ctx, req.UserID) {
		text = ui.MsgCancelled
	}
	return show(ctx, req, text, ui.MainMenu(req.Session.Authenticated))
}

func (h *Handlers) balance(ctx context.Context, req dispatch.Request) error {
	balances := req.Session.CachedBalances
	if balances == nil {
		fetched, err := h.api.GetBalances(ctx, req.Session.AuthToken)
		if err != nil {
			return h.fail(ctx, req, err)
		}
		if _, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
			s.CachedBalances = fetched
			return nil
		}); err != nil {
			return err
		}
		balances = fetched
	}
	return show(ctx, req, ui.Balances(balances), ui.BackToMenu())
}

func (h *Handlers) walletMenu(ctx context.Context, req dispatch.Request) error {
	wallets, err := h.wallets(ctx, req)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	return show(ctx, req, ui.Wallets(wallets)+"\n\n"+ui.MsgWalletMenu, ui.WalletMenu())
}

func (h *Handlers) transferOptions(ctx context.Context, req dispatch.Request) error {
	return show(ctx, req, ui.MsgTransferOptions, ui.TransferOptions())
}

func (h *Handlers) transactions(ctx context.Context, req dispatch.Request) error {
	txs, err := h.api.ListTransactions(ctx, req.Session.AuthToken, req.Payload, h.historyLimit, 0)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	kb := ui.BackToMenu()
	if wallets, err := h.wallets(ctx, req); err == nil && len(wallets) > 1 {
		kb = ui.TransactionsFilter(wallets)
	}
	return show(ctx, req, ui.Transactions(txs), kb)
}

func (h *Handlers) profile(ctx context.Context, req dispatch.Request) error {
	p, err := h.api.GetProfile(ctx, req.Session.AuthToken)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	if _, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
		s.Profile = &p
		return nil
	}); err != nil {
		return err
	}
	return show(ctx, req, ui.Profile(p), ui.BackToMenu())
}

func (h *Handlers) kyc(ctx context.Context, req dispatch.Request) error {
	k, err := h.api.GetKYCStatus(ctx, req.Session.AuthToken)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	return show(ctx, req, ui.KYC(k), ui.BackToMenu())
}

func (h *Handlers) selectDefaultWallet(ctx context.Context, req dispatch.Request) error {
	w, ok, err := h.wallet(ctx, req)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	if !ok {
		return show(ctx, req, ui.MsgWalletNotFound, ui.BackToMenu())
	}
	updated, err := h.api.SetDefaultWallet(ctx, req.Session.AuthToken, w.ID)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	if updated.ID == "" {
		updated = w
	}
	if _, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
		s.InvalidateCache()
		return nil
	}); err != nil {
		return err
	}
	logger.Info(ctx, "dispatch", "wallet.default",
		slog.String("status", "ok"),
		slog.String("wallet_id", updated.ID),
	)
	return show(ctx, req, ui.DefaultWalletSet(updated), ui.BackToMenu())
}

func (h *Handlers) selectDepositWallet(ctx context.Context, req dispatch.Request) error {
	w, ok, err := h.wallet(ctx, req)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	if !ok {
		return show(ctx, req, ui.MsgWalletNotFound, ui.BackToMenu())
	}
	return show(ctx, req, ui.Deposit(w), ui.BackToMenu())
}

func (h *Handlers) selectTransferWallet(ctx context.Context, req dispatch.Request) error {
	return h.beginTransfer(ctx, req, session.KindWallet)
}

func (h *Handlers) selectEmailWallet(ctx context.Context, req dispatch.Request) error {
	return h.beginTransfer(ctx, req, session.KindEmail)
}

func (h *Handlers) selectWithdrawWallet(ctx context.Context, req dispatch.Request) error {
	return h.beginTransfer(ctx, req, session.KindWithdraw)
}

func (h *Handlers) beginTransfer(ctx context.Context, req dispatch.Request, kind session.TransferKind) error {
	w, ok, err := h.wallet(ctx, req)
	if err != nil {
		return h.fail(ctx, req, err)
	}
	if !ok {
		return show(ctx, req, ui.MsgWalletNotFound, ui.BackToMenu())
	}
	if err := h.machine.BeginTransfer(ctx, req.UserID, kind, w.ID); err != nil {
		return err
	}
	return show(ctx, req, ui.TransferPrompt(kind, w), ui.CancelOnly())
}

// confirm executes a pending transfer. The correlation id is removed before
// the remote call, so a second press finds nothing.
func (h *Handlers) confirm(kinds ...session.TransferKind) dispatch.Handler {
	return func(ctx context.Context, req dispatch.Request) error {
		cutoff := h.now().Add(-h.machine.PendingTTL())
		var (
			pending session.PendingTransfer
			found   bool
		)
		_, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
			p, ok := s.Pending[req.Payload]
			if !ok || !kindIn(p.Kind, kinds) {
				return nil
			}
			pending, found = s.TakePending(req.Payload)
			return nil
		})
		if err != nil {
			return err
		}
		if !found || pending.CreatedAt.Before(cutoff) {
			outcome := "duplicate"
			if found {
				outcome = "expired"
			}
			logger.Info(ctx, "dispatch", "transfer.confirm",
				slog.String("status", "rejected"),
				slog.String("outcome", outcome),
				slog.String("correlation_id", logger.SanitizeLimit(req.Payload, 16)),
			)
			_ = req.Reply.Acknowledge(ctx, ui.MsgTransferExpired)
			return show(ctx, req, ui.MsgTransferExpired, ui.BackToMenu())
		}

		_ = req.Reply.Acknowledge(ctx, ui.MsgSending)
		var tx domain.Transaction
		switch pending.Kind {
		case session.KindWithdraw:
			tx, err = h.api.Withdraw(ctx, req.Session.AuthToken, withdrawRequest(pending))
		default:
			tx, err = h.api.SendFunds(ctx, req.Session.AuthToken, pending.WalletID, pending.Amount, pending.Recipient)
		}
		if err != nil {
			return h.fail(ctx, req, err)
		}
		if _, err := h.store.Update(ctx, req.UserID, func(s *session.Session) error {
			s.InvalidateCache()
			return nil
		}); err != nil {
			return err
		}
		logger.Info(ctx, "dispatch", "transfer.confirm",
			slog.String("status", "ok"),
			slog.String("outcome", "ok"),
			slog.String("correlation_id", req.Payload),
			slog.String("wallet_id", pending.WalletID),
		)
		return show(ctx, req, ui.TransferDone(pending, tx), ui.BackToMenu())
	}
}

func kindIn(k session.TransferKind, kinds []session.TransferKind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func withdrawRequest(p session.PendingTransfer) remote.WithdrawRequest {
	return remote.WithdrawRequest{
		WalletID: p.WalletID,
		Address:  p.Recipient,
		Amount:   p.Amount,
		Network:  p.Network,
	}
}
