// Package validate holds the pure input format checks. Each check returns a
// BadRequest error naming the field and the offending value.
package validate

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/dmitrijs2005/gophwallet/internal/common"
)

var (
	uuidRe  = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	refRe   = regexp.MustCompile(`^(?i)[0-9a-f]{8}$`)
	emailRe = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@']+(\.[^<>()\[\]\\.,;:\s@']+)*)|('.+'))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)

	addrRe      = regexp.MustCompile(`^(0x)?(?i)[0-9a-f]{40}$`)
	addrLowerRe = regexp.MustCompile(`^(0x)?[0-9a-f]{40}$`)
	addrUpperRe = regexp.MustCompile(`^(0x)?[0-9A-F]{40}$`)
)

// IsUUID reports whether s is an RFC 4122 UUID (versions 1-5).
func IsUUID(s string) bool {
	return uuidRe.MatchString(s)
}

func IsEmail(s string) bool {
	return emailRe.MatchString(s)
}

func IsRefCode(s string) bool {
	return refRe.MatchString(s)
}

// IsAddress reports whether s is a 40-hex-digit address with an optional 0x
// prefix. Uniformly lower or upper case is accepted as is; mixed case must
// carry a valid checksum.
func IsAddress(s string) bool {
	if !addrRe.MatchString(s) {
		return false
	}
	if addrLowerRe.MatchString(s) || addrUpperRe.MatchString(s) {
		return true
	}
	return isChecksumAddress(s)
}

// isChecksumAddress checks the case of each letter against the keccak256
// hash of the lowercase address: upper iff the hash nibble is > 7.
func isChecksumAddress(s string) bool {
	addr := strings.TrimPrefix(s, "0x")

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.ToLower(addr)))
	hash := hex.EncodeToString(h.Sum(nil))

	for i := 0; i < 40; i++ {
		c := addr[i]
		if c >= '0' && c <= '9' {
			continue
		}
		nibble := hexNibble(hash[i])
		upper := c >= 'A' && c <= 'F'
		if nibble > 7 && !upper {
			return false
		}
		if nibble <= 7 && upper {
			return false
		}
	}
	return true
}

func hexNibble(c byte) byte {
	if c >= 'a' {
		return c - 'a' + 10
	}
	return c - '0'
}

func AccountID(id string) error {
	if !IsUUID(id) {
		return common.InvalidField("accountId", id, "not uuid v4")
	}
	return nil
}

func Email(email string) error {
	if !IsEmail(email) {
		return common.InvalidField("email", email, "has invalid format")
	}
	return nil
}

func RefCode(code string) error {
	if !IsRefCode(code) {
		return common.InvalidField("refCode", code, "has invalid format")
	}
	return nil
}

func Address(field, addr string) error {
	if !IsAddress(addr) {
		return common.InvalidField(field, addr, "is not a valid address")
	}
	return nil
}
