// Package address classifies contract addresses for display and logging.
// Classification never rejects an address: unknown formats stay opaque.
package address

import (
	"strings"

	"filippo.io/edwards25519"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Kind is the detected address family.
type Kind string

const (
	KindOpaque Kind = "opaque"
	KindEVM    Kind = "evm"
	KindSolana Kind = "solana"
)

// solanaKeyLen is the decoded length of a Solana public key.
const solanaKeyLen = 32

// Address is a classified contract address.
type Address struct {
	Raw  string `json:"raw"`
	Kind Kind   `json:"kind"`

	// Canonical is the EIP-55 checksummed form for EVM addresses and Raw otherwise.
	Canonical string `json:"canonical"`

	// OnCurve is set for Solana keys that are valid ed25519 points.
	// Program-derived addresses are off-curve.
	OnCurve bool `json:"onCurve,omitempty"`
}

// Parse classifies s. It never fails.
func Parse(s string) Address {
	raw := strings.TrimSpace(s)
	a := Address{Raw: raw, Kind: KindOpaque, Canonical: raw}

	if common.IsHexAddress(raw) {
		a.Kind = KindEVM
		a.Canonical = common.HexToAddress(raw).Hex()
		return a
	}

	if key, ok := decodeSolana(raw); ok {
		a.Kind = KindSolana
		a.OnCurve = onCurve(key)
	}
	return a
}

// Short returns an abbreviated form such as 0x1234…abcd for headers.
func (a Address) Short() string {
	s := a.Canonical
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// ChecksumMismatch reports a mixed-case EVM address whose casing is not
// a valid EIP-55 checksum.
func (a Address) ChecksumMismatch() bool {
	if a.Kind != KindEVM {
		return false
	}
	body := strings.TrimPrefix(strings.TrimPrefix(a.Raw, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return false
	}
	return "0x"+body != a.Canonical
}

func decodeSolana(s string) ([]byte, bool) {
	// 32 bytes encode to 32..44 base58 characters.
	if len(s) < 32 || len(s) > 44 {
		return nil, false
	}
	key, err := base58.Decode(s)
	if err != nil || len(key) != solanaKeyLen {
		return nil, false
	}
	return key, true
}

func onCurve(key []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}
