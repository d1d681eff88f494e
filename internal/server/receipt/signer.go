package receipt

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dmitrijs2005/gophwallet/internal/common"
)

// Signer issues receipts with one private key.
type Signer struct {
	key  *ecdsa.PrivateKey
	addr ethcommon.Address
	now  func() time.Time
}

// NewSigner parses a hex private key, with or without 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return &Signer{key: key, addr: crypto.PubkeyToAddress(key.PublicKey), now: time.Now}, nil
}

// Address is the address receipts from this signer recover to.
func (s *Signer) Address() ethcommon.Address {
	return s.addr
}

// Sign encodes and signs r. A zero CreatedAt is replaced by the current time.
func (s *Signer) Sign(r Receipt) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	body, err := r.body()
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(crypto.Keccak256(body), s.key)
	if err != nil {
		return "", fmt.Errorf("sign receipt: %w", err)
	}

	return encoding.EncodeToString(append(body, sig...)), nil
}

// Parse decodes s and recovers its signer. Malformed input fails
// Unauthorized("invalid session: ...").
func Parse(s string) (*Receipt, error) {
	raw, err := encoding.DecodeString(s)
	if err != nil {
		return nil, common.Unauthorized("invalid session: %s.", err)
	}
	if len(raw) < minEncoded {
		return nil, common.Unauthorized("invalid session: receipt too short.")
	}

	body, sig := raw[:len(raw)-sigLen], raw[len(raw)-sigLen:]

	r, err := decodeBody(body)
	if err != nil {
		return nil, common.Unauthorized("invalid session: %s.", err)
	}

	pub, err := crypto.SigToPub(crypto.Keccak256(body), sig)
	if err != nil {
		return nil, common.Unauthorized("invalid session: %s.", err)
	}
	r.Signer = crypto.PubkeyToAddress(*pub)

	return &r, nil
}
