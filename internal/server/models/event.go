package models

// WalletCreatedSubjectPrefix is followed by the signer address in the
// notification subject.
const WalletCreatedSubjectPrefix = "WalletCreated::"

type WalletCreated struct {
	AccountID  string `json:"accountId"`
	Email      string `json:"email"`
	SignerAddr string `json:"signerAddr"`
}

// WalletArchive is the audit record written when a wallet is replaced.
type WalletArchive struct {
	AccountID  string `json:"accountId"`
	OldAddress string `json:"oldAddress"`
	NewAddress string `json:"newAddress"`
	Wallet     string `json:"wallet"`
	ReplacedAt int64  `json:"replacedAt"`
}
