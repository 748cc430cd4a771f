// Package ui turns wallet records into message text and inline keyboards.
// Every function is pure; nothing here talks to the transport.
package ui

import (
	"github.com/bradenaw/juniper/xslices"

	"github.com/m3rciful/walletbot/internal/chat"
	"github.com/m3rciful/walletbot/internal/domain"
)

// Action names shared by keyboards and the handler registry.
const (
	ActionMainMenu             = "main_menu"
	ActionLogin                = "login"
	ActionLogout               = "logout"
	ActionHelp                 = "help"
	ActionCancel               = "cancel"
	ActionBalance              = "balance"
	ActionWalletMenu           = "wallet_menu"
	ActionSetDefaultWallet     = "set_default_wallet"
	ActionSelectDefaultWallet  = "select_default_wallet"
	ActionDeposit              = "deposit"
	ActionSelectDepositWallet  = "select_deposit_wallet"
	ActionTransferOptions      = "transfer_options"
	ActionTransferEmail        = "transfer_email"
	ActionTransferWallet       = "transfer_wallet"
	ActionSelectTransferWallet = "select_transfer_wallet"
	ActionSelectEmailWallet    = "select_email_wallet"
	ActionConfirmTransfer      = "confirm_transfer"
	ActionWithdraw             = "withdraw"
	ActionSelectWithdrawWallet = "select_withdraw_wallet"
	ActionConfirmWithdraw      = "confirm_withdraw"
	ActionTransactions         = "transactions"
	ActionProfile              = "profile"
	ActionKYC                  = "kyc"
)

// Token joins an action name and payload in the name:payload form.
func Token(action, payload string) string {
	if payload == "" {
		return action
	}
	return action + ":" + payload
}

func btn(text, action string) chat.Button {
	return chat.Button{Text: text, Action: action}
}

// MainMenu is the root keyboard; logged-out users only see login and help.
func MainMenu(authenticated bool) chat.Keyboard {
	if !authenticated {
		return chat.Keyboard{
			chat.Row(btn("🔑 Login", ActionLogin)),
			chat.Row(btn("❓ Help", ActionHelp)),
		}
	}
	return chat.Keyboard{
		chat.Row(btn("💰 Balance", ActionBalance), btn("👛 Wallets", ActionWalletMenu)),
		chat.Row(btn("📤 Send", ActionTransferOptions), btn("🏦 Withdraw", ActionWithdraw)),
		chat.Row(btn("📜 History", ActionTransactions), btn("👤 Profile", ActionProfile)),
		chat.Row(btn("❓ Help", ActionHelp), btn("🚪 Logout", ActionLogout)),
	}
}

// WalletMenu offers the wallet management actions.
func WalletMenu() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(btn("💰 Balances", ActionBalance)),
		chat.Row(btn("⭐ Set default wallet", ActionSetDefaultWallet)),
		chat.Row(btn("📥 Deposit", ActionDeposit)),
		chat.Row(btn("📜 Transactions", ActionTransactions)),
		chat.Row(BackButton()),
	}
}

// TransferOptions lets the user pick the transfer kind.
func TransferOptions() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(btn("📧 Send to email", ActionTransferEmail)),
		chat.Row(btn("👛 Send to wallet address", ActionTransferWallet)),
		chat.Row(btn("🏦 Withdraw to external wallet", ActionWithdraw)),
		chat.Row(BackButton()),
	}
}

// WalletSelection lists wallets, one per row, each pressing selectAction:<walletID>.
func WalletSelection(wallets []domain.Wallet, selectAction string) chat.Keyboard {
	rows := xslices.Map(wallets, func(w domain.Wallet) []chat.Button {
		return chat.Row(btn(WalletLabel(w), Token(selectAction, w.ID)))
	})
	return append(rows, chat.Row(CancelButton()))
}

// Confirmation renders confirm and cancel for a pending correlation id.
func Confirmation(confirmAction, correlationID string) chat.Keyboard {
	return chat.Keyboard{
		chat.Row(btn("✅ Confirm", Token(confirmAction, correlationID)), CancelButton()),
	}
}

// CancelOnly is attached to free-text prompts.
func CancelOnly() chat.Keyboard {
	return chat.Keyboard{chat.Row(CancelButton())}
}

// BackToMenu is attached to terminal messages.
func BackToMenu() chat.Keyboard {
	return chat.Keyboard{chat.Row(BackButton())}
}

// Recovery is shown after a handler failure.
func Recovery() chat.Keyboard {
	return chat.Keyboard{
		chat.Row(btn("🏠 Main menu", ActionMainMenu), btn("❓ Help", ActionHelp)),
	}
}

// TransactionsFilter offers per-wallet history plus the unfiltered view.
func TransactionsFilter(wallets []domain.Wallet) chat.Keyboard {
	rows := xslices.Map(wallets, func(w domain.Wallet) []chat.Button {
		return chat.Row(btn("📜 "+WalletLabel(w), Token(ActionTransactions, w.ID)))
	})
	return append(rows, chat.Row(btn("📜 All wallets", ActionTransactions)), chat.Row(BackButton()))
}

// CancelButton presses the cancel action.
func CancelButton() chat.Button { return btn("❌ Cancel", ActionCancel) }

// BackButton returns to the main menu.
func BackButton() chat.Button { return btn("🔙 Main menu", ActionMainMenu) }
