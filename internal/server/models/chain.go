package models

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ProxyState is the on-chain view of a proxy contract.
type ProxyState struct {
	Proxy    ethcommon.Address
	Owner    ethcommon.Address
	IsLocked bool
}

// ForwardCall is a call the proxy should make on behalf of its owner.
type ForwardCall struct {
	Proxy       ethcommon.Address
	Signer      ethcommon.Address
	Destination ethcommon.Address
	Value       *uint256.Int
	Data        []byte
}

// RelayMessage is queued for the transaction relayer.
type RelayMessage struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Gas        uint64 `json:"gas"`
	Data       string `json:"data"`
	SignerAddr string `json:"signerAddr"`
}
