// Package remote is the client for the wallet HTTP API. The conversation core
// depends only on the Service interface.
package remote

import (
	"context"

	"github.com/m3rciful/walletbot/internal/domain"
)

// OTPRequest is the result of asking the API to email a one-time code.
type OTPRequest struct {
	RequestID string `json:"sid"`
	Email     string `json:"email,omitempty"`
}

// AuthResult carries the credential issued for a verified code.
type AuthResult struct {
	Token          string
	OrganizationID string
	User           *domain.Profile
}

// WithdrawRequest describes a withdrawal to an external address.
type WithdrawRequest struct {
	WalletID string
	Address  string
	Amount   string
	Network  string
}

// Service is every wallet API call the bot makes. Implementations must be safe for concurrent use.
type Service interface {
	RequestOTP(ctx context.Context, email string) (OTPRequest, error)
	Authenticate(ctx context.Context, email, code, requestID string) (AuthResult, error)
	GetProfile(ctx context.Context, token string) (domain.Profile, error)
	ListWallets(ctx context.Context, token string) ([]domain.Wallet, error)
	GetBalances(ctx context.Context, token string) ([]domain.WalletBalance, error)
	GetDefaultWallet(ctx context.Context, token string) (domain.Wallet, error)
	SetDefaultWallet(ctx context.Context, token, walletID string) (domain.Wallet, error)
	SendFunds(ctx context.Context, token, walletID, amount, recipient string) (domain.Transaction, error)
	Withdraw(ctx context.Context, token string, req WithdrawRequest) (domain.Transaction, error)
	ListTransactions(ctx context.Context, token, walletID string, limit, offset int) ([]domain.Transaction, error)
	GetKYCStatus(ctx context.Context, token string) (domain.KYC, error)
}
