// Package receipt implements the signed capability tokens that replace
// server-side sessions.
//
// A receipt string is base64url (no padding) of
//
//	type:1 | createdAt:4 (uint32 BE, unix seconds) | subject | payload | sig:65
//
// The subject is a 16-byte account UUID for CREATE_CONF and RESET_CONF and a
// 20-byte proxy address for UNLOCK and FORWARD. The signature is a recoverable
// secp256k1 signature [R||S||V] over keccak256 of everything before it, so the
// signer address is derived from the token itself.
//
// Parse only checks structure and recovers the signer. Callers enforce
// signer, type and freshness with CheckSigner, CheckType and CheckFresh.
package receipt

import (
	"encoding/base64"
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/dmitrijs2005/gophwallet/internal/common"
)

type Type byte

const (
	CreateConf Type = iota + 1
	ResetConf
	Unlock
	Forward
)

var typeNames = map[Type]string{
	CreateConf: "CREATE_CONF",
	ResetConf:  "RESET_CONF",
	Unlock:     "UNLOCK",
	Forward:    "FORWARD",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", byte(t))
}

// ParseType maps a type name such as "RESET_CONF" back to its Type.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown receipt type %q", name)
}

const (
	headerLen  = 1 + 4
	uuidLen    = 16
	addrLen    = ethcommon.AddressLength
	valueLen   = 32
	sigLen     = 65
	minEncoded = headerLen + uuidLen + sigLen
)

var encoding = base64.RawURLEncoding

// Receipt is a decoded token. Only the fields of its Type are meaningful.
type Receipt struct {
	Type      Type
	CreatedAt time.Time

	// Signer is recovered from the signature by Parse and is ignored by Sign.
	Signer ethcommon.Address

	AccountID uuid.UUID         // CREATE_CONF, RESET_CONF
	Wallet    ethcommon.Address // RESET_CONF: wallet the reset may replace

	Proxy    ethcommon.Address // UNLOCK, FORWARD
	NewOwner ethcommon.Address // UNLOCK

	Destination ethcommon.Address // FORWARD
	Value       *uint256.Int      // FORWARD
	Data        []byte            // FORWARD
}

func NewCreateConf(accountID uuid.UUID) Receipt {
	return Receipt{Type: CreateConf, AccountID: accountID}
}

func NewResetConf(accountID uuid.UUID, wallet ethcommon.Address) Receipt {
	return Receipt{Type: ResetConf, AccountID: accountID, Wallet: wallet}
}

func NewUnlock(proxy, newOwner ethcommon.Address) Receipt {
	return Receipt{Type: Unlock, Proxy: proxy, NewOwner: newOwner}
}

func NewForward(proxy, destination ethcommon.Address, value *uint256.Int, data []byte) Receipt {
	return Receipt{Type: Forward, Proxy: proxy, Destination: destination, Value: value, Data: data}
}

// Subject returns the account id or proxy address the receipt is about.
func (r *Receipt) Subject() string {
	switch r.Type {
	case CreateConf, ResetConf:
		return r.AccountID.String()
	default:
		return r.Proxy.Hex()
	}
}

// body serialises everything covered by the signature.
func (r *Receipt) body() ([]byte, error) {
	created := r.CreatedAt.Unix()
	if created < 0 || created > 0xffffffff {
		return nil, fmt.Errorf("createdAt out of range: %d", created)
	}

	b := make([]byte, headerLen, headerLen+addrLen*2+valueLen+len(r.Data))
	b[0] = byte(r.Type)
	b[1] = byte(created >> 24)
	b[2] = byte(created >> 16)
	b[3] = byte(created >> 8)
	b[4] = byte(created)

	switch r.Type {
	case CreateConf:
		b = append(b, r.AccountID[:]...)
	case ResetConf:
		b = append(b, r.AccountID[:]...)
		b = append(b, r.Wallet.Bytes()...)
	case Unlock:
		b = append(b, r.Proxy.Bytes()...)
		b = append(b, r.NewOwner.Bytes()...)
	case Forward:
		b = append(b, r.Proxy.Bytes()...)
		b = append(b, r.Destination.Bytes()...)
		v := r.Value
		if v == nil {
			v = new(uint256.Int)
		}
		word := v.Bytes32()
		b = append(b, word[:]...)
		b = append(b, r.Data...)
	default:
		return nil, fmt.Errorf("unknown receipt type %d", byte(r.Type))
	}
	return b, nil
}

func decodeBody(b []byte) (Receipt, error) {
	r := Receipt{
		Type:      Type(b[0]),
		CreatedAt: time.Unix(int64(uint32(b[1])<<24|uint32(b[2])<<16|uint32(b[3])<<8|uint32(b[4])), 0),
	}
	rest := b[headerLen:]

	switch r.Type {
	case CreateConf:
		if len(rest) != uuidLen {
			return r, fmt.Errorf("bad %s length %d", r.Type, len(rest))
		}
		copy(r.AccountID[:], rest)
	case ResetConf:
		if len(rest) != uuidLen+addrLen {
			return r, fmt.Errorf("bad %s length %d", r.Type, len(rest))
		}
		copy(r.AccountID[:], rest[:uuidLen])
		r.Wallet = ethcommon.BytesToAddress(rest[uuidLen:])
	case Unlock:
		if len(rest) != 2*addrLen {
			return r, fmt.Errorf("bad %s length %d", r.Type, len(rest))
		}
		r.Proxy = ethcommon.BytesToAddress(rest[:addrLen])
		r.NewOwner = ethcommon.BytesToAddress(rest[addrLen:])
	case Forward:
		if len(rest) < 2*addrLen+valueLen {
			return r, fmt.Errorf("bad %s length %d", r.Type, len(rest))
		}
		r.Proxy = ethcommon.BytesToAddress(rest[:addrLen])
		r.Destination = ethcommon.BytesToAddress(rest[addrLen : 2*addrLen])
		r.Value = new(uint256.Int).SetBytes32(rest[2*addrLen : 2*addrLen+valueLen])
		r.Data = append([]byte(nil), rest[2*addrLen+valueLen:]...)
	default:
		return r, fmt.Errorf("unknown receipt type %d", b[0])
	}
	return r, nil
}

// Peek reads type and creation time without verifying the signature.
func Peek(s string) (Type, time.Time, error) {
	raw, err := encoding.DecodeString(s)
	if err != nil || len(raw) < minEncoded {
		return 0, time.Time{}, common.Unauthorized("invalid session: malformed receipt.")
	}
	r, err := decodeBody(raw[:len(raw)-sigLen])
	if err != nil {
		return 0, time.Time{}, common.Unauthorized("invalid session: %s.", err)
	}
	return r.Type, r.CreatedAt, nil
}

// CheckSigner fails Unauthorized unless the receipt was signed by expected.
func (r *Receipt) CheckSigner(expected ethcommon.Address) error {
	if r.Signer != expected {
		return common.Unauthorized("invalid session signer: %s.", r.Signer.Hex())
	}
	return nil
}

// CheckType fails Forbidden when the receipt is not of type t.
func (r *Receipt) CheckType(t Type) error {
	if r.Type != t {
		return common.Forbidden("operation forbidden with session type %s.", r.Type)
	}
	return nil
}

// CheckFresh fails Unauthorized when the receipt was created before
// now-window or more than common.MaxReceiptSkew after now.
func (r *Receipt) CheckFresh(now time.Time, window time.Duration) error {
	oldest := now.Add(-window).Unix()
	created := r.CreatedAt.Unix()
	if created < oldest {
		return common.Unauthorized("session expired since %d seconds.", oldest-created)
	}
	if r.IsFuture(now) {
		return common.Unauthorized("session created %d seconds in the future.", created-now.Unix())
	}
	return nil
}

// IsFuture reports whether the receipt claims a createdAt beyond the
// allowed clock skew.
func (r *Receipt) IsFuture(now time.Time) bool {
	return r.CreatedAt.Unix() > now.Add(common.MaxReceiptSkew).Unix()
}

// Age returns how long ago the receipt was created, in whole seconds.
func (r *Receipt) Age(now time.Time) time.Duration {
	return time.Duration(now.Unix()-r.CreatedAt.Unix()) * time.Second
}
