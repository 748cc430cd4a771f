package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bradenaw/juniper/xslices"

	"github.com/m3rciful/walletbot/core/telegram/format"
	"github.com/m3rciful/walletbot/internal/domain"
	"github.com/m3rciful/walletbot/internal/session"
)

// ShortID trims long identifiers for button labels.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}

// WalletLabel is the one-line button label of a wallet.
func WalletLabel(w domain.Wallet) string {
	label := ShortID(w.ID) + " · " + NetworkName(w.Network)
	if w.IsDefault {
		label = "⭐ " + label
	}
	return label
}

// Welcome greets the user on /start and the main menu.
func Welcome(s session.Session) string {
	if !s.Authenticated {
		return "*Welcome to the wallet bot!*\n\nLog in with your account email to manage wallets, check balances and send funds."
	}
	name := "there"
	if s.Profile != nil && s.Profile.DisplayName() != "" {
		name = s.Profile.DisplayName()
	}
	return fmt.Sprintf("*Welcome back, %s!*\n\nWhat would you like to do?", format.MD(name))
}

// Help lists every command.
func Help() string {
	return strings.Join([]string{
		"*Available commands*",
		"",
		"/start - Main menu",
		"/login - Log in with email and one-time code",
		"/balance - Wallet balances",
		"/wallets - Manage wallets",
		"/send - Send funds",
		"/withdraw - Withdraw to an external wallet",
		"/history - Recent transactions",
		"/profile - Account details",
		"/kyc - Verification status",
		"/cancel - Cancel the current operation",
		"/logout - Log out",
	}, "\n")
}

// Balances renders balances grouped by wallet.
func Balances(balances []domain.WalletBalance) string {
	if len(balances) == 0 {
		return "No wallet balances available."
	}
	var b strings.Builder
	b.WriteString("*Your Wallet Balances*\n\n")
	for _, wb := range balances {
		def := ""
		if wb.IsDefault {
			def = " (Default)"
		}
		fmt.Fprintf(&b, "*Wallet %s%s*\n", format.MD(ShortID(wb.WalletID)), def)
		if len(wb.Balances) == 0 {
			b.WriteString("- No funds in this wallet\n\n")
			continue
		}
		for _, bal := range wb.Balances {
			fmt.Fprintf(&b, "- %s %s on %s\n", format.MD(bal.Balance), format.MD(bal.Symbol), NetworkName(wb.Network))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Wallets renders the wallet list.
func Wallets(wallets []domain.Wallet) string {
	if len(wallets) == 0 {
		return "You have no wallets yet."
	}
	lines := xslices.Map(wallets, func(w domain.Wallet) string {
		line := fmt.Sprintf("• `%s` on %s", w.ID, NetworkName(w.Network))
		if w.IsDefault {
			line += " ⭐"
		}
		return line
	})
	return "*Your Wallets*\n\n" + strings.Join(lines, "\n")
}

// Transactions renders recent history.
func Transactions(txs []domain.Transaction) string {
	if len(txs) == 0 {
		return "No recent transactions."
	}
	var b strings.Builder
	b.WriteString("*Recent Transactions*\n\n")
	for _, tx := range txs {
		kind := tx.Type
		if kind != "" {
			kind = strings.ToUpper(kind[:1]) + kind[1:]
		}
		fmt.Fprintf(&b, "*%s* - %s\n", format.MD(kind), formatDate(tx.CreatedAt))
		fmt.Fprintf(&b, "Amount: %s %s\n", format.MD(tx.Amount), format.MD(tx.Currency))
		if tx.DestinationAddress != "" {
			fmt.Fprintf(&b, "To: `%s`\n", tx.DestinationAddress)
		} else if tx.RecipientEmail != "" {
			fmt.Fprintf(&b, "To: %s\n", format.MD(tx.RecipientEmail))
		}
		fmt.Fprintf(&b, "Status: %s\n\n", format.MD(tx.Status))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	return t.UTC().Format("2006-01-02")
}

// Profile renders the account card.
func Profile(p domain.Profile) string {
	var b strings.Builder
	b.WriteString("*Your Profile*\n\n")
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		fmt.Fprintf(&b, "Name: %s\n", format.MD(name))
	}
	fmt.Fprintf(&b, "Email: %s\n", format.MD(p.Email))
	if p.Role != "" {
		fmt.Fprintf(&b, "Role: %s\n", format.MD(p.Role))
	}
	if p.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", format.MD(p.Status))
	}
	if p.WalletAddress != "" {
		fmt.Fprintf(&b, "Wallet: `%s`\n", p.WalletAddress)
	}
	return strings.TrimRight(b.String(), "\n")
}

// KYC renders the verification state.
func KYC(k domain.KYC) string {
	if k.Approved() {
		return "✅ Your KYC verification is approved."
	}
	status := k.Status
	if status == "" || status == "none" {
		return "⚠️ You have not completed KYC verification yet. Transfers may be limited until it is approved."
	}
	return fmt.Sprintf("⏳ Your KYC verification status: *%s*", format.MD(status))
}

// Deposit shows where to send funds.
func Deposit(w domain.Wallet) string {
	if w.WalletAddress == "" {
		return fmt.Sprintf("Wallet %s has no deposit address yet.", format.MD(ShortID(w.ID)))
	}
	return fmt.Sprintf("*Deposit to %s*\n\nNetwork: %s\nAddress:\n`%s`\n\nOnly send assets supported on this network.",
		format.MD(ShortID(w.ID)), NetworkName(w.Network), w.WalletAddress)
}

// DefaultWalletSet confirms a default wallet change.
func DefaultWalletSet(w domain.Wallet) string {
	return fmt.Sprintf("⭐ Wallet %s on %s is now your default wallet.", format.MD(ShortID(w.ID)), NetworkName(w.Network))
}

// TransferPrompt asks for the amount and destination once a wallet is chosen.
func TransferPrompt(kind session.TransferKind, w domain.Wallet) string {
	from := fmt.Sprintf("From wallet %s on %s.\n\n", format.MD(ShortID(w.ID)), NetworkName(w.Network))
	switch kind {
	case session.KindEmail:
		return from + "Send the amount and the recipient email separated by a space, e.g.\n`10 friend@example.com`"
	case session.KindWithdraw:
		return from + "Send the amount, the destination address and optionally the network, e.g.\n`25 0x1234... 137`"
	default:
		return from + "Send the amount and the recipient address separated by a space, e.g.\n`10 0x1234...`"
	}
}

// Confirm summarizes a pending transfer before the confirm press.
func Confirm(p session.PendingTransfer) string {
	var b strings.Builder
	switch p.Kind {
	case session.KindWithdraw:
		b.WriteString("*Confirm withdrawal*\n\n")
	default:
		b.WriteString("*Confirm transfer*\n\n")
	}
	fmt.Fprintf(&b, "From wallet: %s\n", format.MD(ShortID(p.WalletID)))
	fmt.Fprintf(&b, "Amount: %s\n", format.MD(p.Amount))
	if p.Kind == session.KindEmail {
		fmt.Fprintf(&b, "To: %s\n", format.MD(p.Recipient))
	} else {
		fmt.Fprintf(&b, "To: `%s`\n", p.Recipient)
	}
	if p.Network != "" {
		fmt.Fprintf(&b, "Network: %s\n", NetworkName(p.Network))
	}
	b.WriteString("\nPress Confirm to proceed.")
	return b.String()
}

// TransferDone reports the outcome of a confirmed transfer.
func TransferDone(p session.PendingTransfer, tx domain.Transaction) string {
	verb := "Transfer"
	if p.Kind == session.KindWithdraw {
		verb = "Withdrawal"
	}
	msg := fmt.Sprintf("✅ %s of %s submitted.", verb, format.MD(p.Amount))
	if tx.ID != "" {
		msg += fmt.Sprintf("\nReference: `%s`", tx.ID)
	}
	if tx.Status != "" {
		msg += fmt.Sprintf("\nStatus: %s", format.MD(tx.Status))
	}
	return msg
}
