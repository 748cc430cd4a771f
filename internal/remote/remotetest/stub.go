// Package remotetest provides a scriptable remote.Service for tests.
package remotetest

import (
	"context"
	"sync"

	"github.com/m3rciful/walletbot/internal/domain"
	"github.com/m3rciful/walletbot/internal/remote"
)

// SendCall records the arguments of one SendFunds call.
type SendCall struct {
	Token, WalletID, Amount, Recipient string
}

// Stub answers every call from its fields and counts invocations.
// Set an Err field to make the matching call fail.
type Stub struct {
	mu    sync.Mutex
	calls map[string]int

	OTP        remote.OTPRequest
	OTPErr     error
	Auth       remote.AuthResult
	AuthErr    error
	Profile    domain.Profile
	ProfileErr error

	Wallets      []domain.Wallet
	WalletsErr   error
	Balances     []domain.WalletBalance
	BalancesErr  error
	DefaultErr   error
	Transaction  domain.Transaction
	SendErr      error
	WithdrawErr  error
	Transactions []domain.Transaction
	HistoryErr   error
	KYC          domain.KYC
	KYCErr       error

	Sends     []SendCall
	Withdraws []remote.WithdrawRequest
}

var _ remote.Service = (*Stub)(nil)

func (s *Stub) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[name]++
}

// Calls reports how many times the named method ran.
func (s *Stub) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *Stub) RequestOTP(context.Context, string) (remote.OTPRequest, error) {
	s.record("RequestOTP")
	return s.OTP, s.OTPErr
}

func (s *Stub) Authenticate(context.Context, string, string, string) (remote.AuthResult, error) {
	s.record("Authenticate")
	return s.Auth, s.AuthErr
}

func (s *Stub) GetProfile(context.Context, string) (domain.Profile, error) {
	s.record("GetProfile")
	return s.Profile, s.ProfileErr
}

func (s *Stub) ListWallets(context.Context, string) ([]domain.Wallet, error) {
	s.record("ListWallets")
	return s.Wallets, s.WalletsErr
}

func (s *Stub) GetBalances(context.Context, string) ([]domain.WalletBalance, error) {
	s.record("GetBalances")
	return s.Balances, s.BalancesErr
}

func (s *Stub) GetDefaultWallet(context.Context, string) (domain.Wallet, error) {
	s.record("GetDefaultWallet")
	w, ok := domain.DefaultWallet(s.Wallets)
	if !ok && s.DefaultErr == nil {
		return domain.Wallet{}, &remote.APIError{Status: 404, Message: "No default wallet"}
	}
	return w, s.DefaultErr
}

func (s *Stub) SetDefaultWallet(_ context.Context, _ string, walletID string) (domain.Wallet, error) {
	s.record("SetDefaultWallet")
	if s.DefaultErr != nil {
		return domain.Wallet{}, s.DefaultErr
	}
	w, _ := domain.FindWallet(s.Wallets, walletID)
	w.IsDefault = true
	return w, nil
}

func (s *Stub) SendFunds(_ context.Context, token, walletID, amount, recipient string) (domain.Transaction, error) {
	s.record("SendFunds")
	s.mu.Lock()
	s.Sends = append(s.Sends, SendCall{Token: token, WalletID: walletID, Amount: amount, Recipient: recipient})
	s.mu.Unlock()
	return s.Transaction, s.SendErr
}

func (s *Stub) Withdraw(_ context.Context, _ string, req remote.WithdrawRequest) (domain.Transaction, error) {
	s.record("Withdraw")
	s.mu.Lock()
	s.Withdraws = append(s.Withdraws, req)
	s.mu.Unlock()
	return s.Transaction, s.WithdrawErr
}

func (s *Stub) ListTransactions(context.Context, string, string, int, int) ([]domain.Transaction, error) {
	s.record("ListTransactions")
	return s.Transactions, s.HistoryErr
}

func (s *Stub) GetKYCStatus(context.Context, string) (domain.KYC, error) {
	s.record("GetKYCStatus")
	return s.KYC, s.KYCErr
}
