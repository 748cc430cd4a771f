package ui

import (
	"fmt"

	"github.com/m3rciful/walletbot/core/telegram/format"
)

// Fixed texts shared by the state machine and the action handlers.
const (
	MsgAskEmail         = "Please enter your account email address:"
	MsgInvalidEmail     = "That does not look like a valid email address. Please try again:"
	MsgInvalidOTP       = "The code must be 6 digits. Please try again:"
	MsgOTPFailed        = "Invalid or expired code. Please try again:"
	MsgTooManyAttempts  = "Too many failed attempts. Please start again with /login."
	MsgAlreadyLoggedIn  = "You are already logged in."
	MsgLoggedOut        = "You have been logged out."
	MsgLoginRequired    = "Please log in first"
	MsgCancelled        = "Operation cancelled."
	MsgNothingToCancel  = "Nothing to cancel."
	MsgNotAvailable     = "This action is not available"
	MsgMenuOpen         = "Wallet selection is already open."
	MsgGenericError     = "⚠️ Something went wrong. Please try again."
	MsgTransferExpired  = "This transfer has expired or was already processed."
	MsgInvalidTransfer  = "Please send the amount and the address separated by a space, e.g. `10 0x1234...`"
	MsgInvalidEmailSend = "Please send the amount and the recipient email separated by a space, e.g. `10 friend@example.com`"
	MsgInvalidWithdraw  = "Please send the amount and the address, optionally followed by the network, e.g. `25 0x1234... 137`"
	MsgInvalidAmount    = "The amount must be a positive number."
	MsgNoWallets        = "You have no wallets yet."
	MsgWalletNotFound   = "That wallet is no longer available. Please choose again."
	MsgChooseWallet     = "Choose a wallet:"
	MsgChooseDefault    = "Choose your new default wallet:"
	MsgChooseDeposit    = "Choose the wallet to deposit to:"
	MsgChooseTransfer   = "Choose the wallet to send from:"
	MsgChooseWithdraw   = "Choose the wallet to withdraw from:"
	MsgTransferOptions  = "How would you like to send funds?"
	MsgWalletMenu       = "*Wallet management*"
	MsgSending          = "Processing..."
	MsgAdminOnly        = "This command is only available to administrators."
	MsgUseMenu          = "Use the buttons below or /help to see what I can do."
	MsgSlowDown         = "Too many requests. Please slow down."
)

// AskOTP confirms the code was sent.
func AskOTP(email string) string {
	return fmt.Sprintf("A one-time code was sent to %s. Enter the 6-digit code:", format.MD(email))
}

// LoggedIn greets the user after a successful login.
func LoggedIn(name string) string {
	if name == "" {
		return "✅ You are now logged in."
	}
	return fmt.Sprintf("✅ You are now logged in as %s.", format.MD(name))
}

// Failure prefixes a user-safe remote error.
func Failure(msg string) string {
	return "⚠️ " + format.MD(msg)
}

// Stats is the admin diagnostics line.
func Stats(sessions int, backend string, sendErrors uint64) string {
	return fmt.Sprintf("*Stats*\n\nActive sessions: %d\nSession backend: %s\nSend errors: %d", sessions, format.MD(backend), sendErrors)
}
