// Package domain holds the wallet records shared by the session store, the
// remote API client and the presentation layer.
package domain

import (
	"strings"
	"time"
)

// Profile is the authenticated user's account record.
type Profile struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Email          string `json:"email,omitempty"`
	Role           string `json:"role,omitempty"`
	Status         string `json:"status,omitempty"`
	WalletID       string `json:"walletId,omitempty"`
	WalletAddress  string `json:"walletAddress,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
}

// DisplayName prefers the full name and falls back to the email.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	return p.Email
}

// Wallet is a custodial wallet owned by the organization.
type Wallet struct {
	ID            string    `json:"id"`
	Network       string    `json:"network,omitempty"`
	WalletType    string    `json:"walletType,omitempty"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	IsDefault     bool      `json:"isDefault"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

// Balance is a single token balance inside a wallet.
type Balance struct {
	Symbol   string `json:"symbol"`
	Balance  string `json:"balance"`
	Decimals int    `json:"decimals,omitempty"`
	Address  string `json:"address,omitempty"`
}

// WalletBalance groups the balances held by one wallet.
type WalletBalance struct {
	WalletID  string    `json:"walletId"`
	IsDefault bool      `json:"isDefault"`
	Network   string    `json:"network,omitempty"`
	Balances  []Balance `json:"balances"`
}

// Transaction is a transfer, deposit or withdrawal record.
type Transaction struct {
	ID                 string    `json:"id"`
	Type               string    `json:"type"`
	Status             string    `json:"status"`
	Amount             string    `json:"amount"`
	Currency           string    `json:"currency,omitempty"`
	Network            string    `json:"network,omitempty"`
	DestinationAddress string    `json:"destinationAddress,omitempty"`
	RecipientEmail     string    `json:"recipientEmail,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// KYC reports the verification state of the account.
type KYC struct {
	Status string `json:"status"`
	Level  string `json:"level,omitempty"`
}

// Approved reports whether transfers are allowed for this KYC state.
func (k KYC) Approved() bool {
	return strings.EqualFold(k.Status, "approved")
}

// FindWallet returns the wallet with the given id.
func FindWallet(wallets []Wallet, id string) (Wallet, bool) {
	for _, w := range wallets {
		if w.ID == id {
			return w, true
		}
	}
	return Wallet{}, false
}

// DefaultWallet returns the wallet flagged as default.
func DefaultWallet(wallets []Wallet) (Wallet, bool) {
	for _, w := range wallets {
		if w.IsDefault {
			return w, true
		}
	}
	return Wallet{}, false
}
