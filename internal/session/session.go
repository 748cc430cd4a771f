// Package session owns the per-user conversation state: creation, mutation
// through a serialized write path, durable persistence and idle expiry.
package session

import (
	"maps"
	"slices"
	"time"

	"github.com/m3rciful/walletbot/internal/domain"
)

// Step names the kind of free-text input the user is expected to send next.
type Step string

const (
	StepNone                  Step = ""
	StepAwaitingEmail         Step = "awaiting_email"
	StepAwaitingOTP           Step = "awaiting_otp"
	StepAwaitingTransfer      Step = "awaiting_transfer_amount_address"
	StepAwaitingEmailTransfer Step = "awaiting_email_transfer"
	StepAwaitingWithdraw      Step = "awaiting_withdraw_amount_address"
)

// TransferKind distinguishes the mutating remote call behind a pending transfer.
type TransferKind string

const (
	KindWallet   TransferKind = "wallet"
	KindEmail    TransferKind = "email"
	KindWithdraw TransferKind = "withdraw"
)

// LoginFlow carries the data collected while the user logs in.
type LoginFlow struct {
	PendingEmail string `json:"pendingEmail,omitempty"`
	OTPRequestID string `json:"otpRequestId,omitempty"`
	Attempts     int    `json:"attempts,omitempty"`
}

// TransferFlow carries the wallet chosen before the amount is typed.
type TransferFlow struct {
	Kind     TransferKind `json:"kind"`
	WalletID string       `json:"walletId"`
}

// PendingTransfer is a validated transfer waiting for its confirm press.
type PendingTransfer struct {
	Kind      TransferKind `json:"kind"`
	WalletID  string       `json:"walletId"`
	Amount    string       `json:"amount"`
	Recipient string       `json:"recipient"`
	Network   string       `json:"network,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Session is the complete state kept for one user. Pending maps a short
// correlation id to a transfer awaiting confirmation.
type Session struct {
	UserID         string                     `json:"userId"`
	Authenticated  bool                       `json:"authenticated"`
	AuthToken      string                     `json:"authToken,omitempty"`
	OrganizationID string                     `json:"organizationId,omitempty"`
	Profile        *domain.Profile            `json:"profile,omitempty"`
	Step           Step                       `json:"conversationStep,omitempty"`
	Login          *LoginFlow                 `json:"login,omitempty"`
	Transfer       *TransferFlow              `json:"transfer,omitempty"`
	Pending        map[string]PendingTransfer `json:"pending,omitempty"`
	CurrentAction  string                     `json:"currentAction,omitempty"`
	CachedWallets  []domain.Wallet            `json:"cachedWallets,omitempty"`
	CachedBalances []domain.WalletBalance     `json:"cachedBalances,omitempty"`
	LastActivity   time.Time                  `json:"lastActivity"`
}

// New returns the default, unauthenticated session for userID.
func New(userID string, now time.Time) Session {
	return Session{UserID: userID, LastActivity: now}
}

// Clone returns a deep copy so snapshots never share mutable state with the store.
func (s Session) Clone() Session {
	out := s
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	if s.Login != nil {
		l := *s.Login
		out.Login = &l
	}
	if s.Transfer != nil {
		t := *s.Transfer
		out.Transfer = &t
	}
	if s.Pending != nil {
		out.Pending = maps.Clone(s.Pending)
	}
	out.CachedWallets = slices.Clone(s.CachedWallets)
	if s.CachedBalances != nil {
		out.CachedBalances = make([]domain.WalletBalance, len(s.CachedBalances))
		for i, wb := range s.CachedBalances {
			wb.Balances = slices.Clone(wb.Balances)
			out.CachedBalances[i] = wb
		}
	}
	return out
}

// Pristine reports whether s carries nothing beyond a fresh default session.
// A missing durable record loads as exactly this.
func (s Session) Pristine() bool {
	return !s.Authenticated && s.AuthToken == "" && s.OrganizationID == "" &&
		s.Profile == nil && s.Step == StepNone && s.Login == nil && s.Transfer == nil &&
		len(s.Pending) == 0 && s.CurrentAction == "" &&
		s.CachedWallets == nil && s.CachedBalances == nil
}

// InFlow reports whether a free-text step is active.
func (s Session) InFlow() bool {
	return s.Step != StepNone
}

// StartLogin moves an unauthenticated session to the email prompt.
func (s *Session) StartLogin() {
	s.ResetFlow()
	s.Step = StepAwaitingEmail
	s.Login = &LoginFlow{}
}

// Authenticate records a successful login and closes the login flow.
func (s *Session) Authenticate(token, organizationID string, profile *domain.Profile) {
	s.Authenticated = token != ""
	s.AuthToken = token
	s.OrganizationID = organizationID
	s.Profile = profile
	s.Login = nil
	if s.Step == StepAwaitingEmail || s.Step == StepAwaitingOTP {
		s.Step = StepNone
	}
	s.InvalidateCache()
}

// Logout drops the credential and every cached or flow field tied to it.
func (s *Session) Logout() {
	s.Authenticated = false
	s.AuthToken = ""
	s.OrganizationID = ""
	s.Profile = nil
	s.ResetFlow()
	s.InvalidateCache()
}

// ResetFlow clears the step and every piece of flow data.
func (s *Session) ResetFlow() {
	s.Step = StepNone
	s.Login = nil
	s.Transfer = nil
	s.Pending = nil
	s.CurrentAction = ""
}

// PutPending stores a transfer under its correlation id.
func (s *Session) PutPending(id string, p PendingTransfer) {
	if s.Pending == nil {
		s.Pending = make(map[string]PendingTransfer)
	}
	s.Pending[id] = p
}

// TakePending returns and removes the transfer for id. A second call for the same id reports false.
func (s *Session) TakePending(id string) (PendingTransfer, bool) {
	p, ok := s.Pending[id]
	if !ok {
		return PendingTransfer{}, false
	}
	delete(s.Pending, id)
	if len(s.Pending) == 0 {
		s.Pending = nil
	}
	return p, true
}

// PrunePending drops pending transfers created before cutoff.
func (s *Session) PrunePending(cutoff time.Time) {
	for id, p := range s.Pending {
		if p.CreatedAt.Before(cutoff) {
			delete(s.Pending, id)
		}
	}
	if len(s.Pending) == 0 {
		s.Pending = nil
	}
}

// InvalidateCache drops wallet and balance lists after any mutating call.
func (s *Session) InvalidateCache() {
	s.CachedWallets = nil
	s.CachedBalances = nil
}

// repair restores the auth invariant on records read back from storage.
func (s *Session) repair() {
	if !s.Authenticated || s.AuthToken == "" {
		s.Authenticated = false
		s.AuthToken = ""
	}
	if s.Step == StepAwaitingEmail || s.Step == StepAwaitingOTP {
		if s.Login == nil {
			s.Login = &LoginFlow{}
		}
	}
	if (s.Step == StepAwaitingTransfer || s.Step == StepAwaitingEmailTransfer || s.Step == StepAwaitingWithdraw) && s.Transfer == nil {
		s.Step = StepNone
	}
}
