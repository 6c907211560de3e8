package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		kind      Kind
		canonical string
	}{
		{
			name:      "short placeholder stays opaque",
			in:        "0xabc",
			kind:      KindOpaque,
			canonical: "0xabc",
		},
		{
			name:      "lowercase evm is checksummed",
			in:        "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			kind:      KindEVM,
			canonical: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		},
		{
			name:      "evm without prefix",
			in:        "fb6916095ca1df60bb79ce92ce3ea74c37c5d359",
			kind:      KindEVM,
			canonical: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		},
		{
			name:      "solana system program",
			in:        "11111111111111111111111111111111",
			kind:      KindSolana,
			canonical: "11111111111111111111111111111111",
		},
		{
			name:      "solana token program",
			in:        "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			kind:      KindSolana,
			canonical: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		},
		{
			name:      "invalid base58 character",
			in:        "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl",
			kind:      KindOpaque,
			canonical: "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl",
		},
		{
			name:      "whitespace trimmed",
			in:        "  b2s-token  ",
			kind:      KindOpaque,
			canonical: "b2s-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Parse(tt.in)
			assert.Equal(t, tt.kind, a.Kind)
			assert.Equal(t, tt.canonical, a.Canonical)
		})
	}
}

func TestParse_SolanaCurve(t *testing.T) {
	// The all-zero key decodes to the y=0 point, which is on the curve.
	assert.True(t, Parse("11111111111111111111111111111111").OnCurve)
}

func TestAddress_Short(t *testing.T) {
	assert.Equal(t, "0xabc", Parse("0xabc").Short())
	assert.Equal(t, "0x5aAe…eAed", Parse("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed").Short())
}

func TestAddress_ChecksumMismatch(t *testing.T) {
	assert.False(t, Parse("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed").ChecksumMismatch())
	assert.False(t, Parse("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed").ChecksumMismatch())
	assert.True(t, Parse("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed").ChecksumMismatch())
	assert.False(t, Parse("0xabc").ChecksumMismatch())
}
