// Package models defines the account service's persisted records and the
// messages it emits.
package models

import (
	"encoding/json"
	"time"
)

// Account is one end user. Email is empty until the pending email is
// confirmed; Wallet holds the raw wallet JSON and is empty until set.
type Account struct {
	ID            string
	CreatedAt     time.Time
	Email         string
	PendingEmail  string
	Wallet        string
	SignerAddress string
	ProxyAddress  string
	Referral      string
}

func (a *Account) HasWallet() bool {
	return a.Wallet != ""
}

// AccountView is the public read view of an account.
type AccountView struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Email         string    `json:"email,omitempty"`
	PendingEmail  string    `json:"pendingEmail,omitempty"`
	SignerAddress string    `json:"signerAddress,omitempty"`
	ProxyAddress  string    `json:"proxyAddress,omitempty"`
	Referral      string    `json:"referral,omitempty"`
	HasWallet     bool      `json:"hasWallet"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:            a.ID,
		CreatedAt:     a.CreatedAt,
		Email:         a.Email,
		PendingEmail:  a.PendingEmail,
		SignerAddress: a.SignerAddress,
		ProxyAddress:  a.ProxyAddress,
		Referral:      a.Referral,
		HasWallet:     a.HasWallet(),
	}
}

// WalletHeader is the part of a wallet JSON blob the service reads. The rest
// of the keystore is stored opaquely.
type WalletHeader struct {
	Address string `json:"address"`
}

// ParseWalletHeader extracts the address field from a wallet blob.
func ParseWalletHeader(wallet string) (WalletHeader, error) {
	var h WalletHeader
	err := json.Unmarshal([]byte(wallet), &h)
	return h, err
}
