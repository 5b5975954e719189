package solana

import (
	"crypto/sha256"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(PumpProgramID))
	assert.ErrorIs(t, ValidateAddress("not-base58-0OIl"), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateAddress(base58.Encode([]byte{1, 2, 3})), ErrInvalidAddress)
}

func TestValidateWallet(t *testing.T) {
	key, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)
	assert.NoError(t, ValidateWallet(key.PublicKey().String()))

	pda, err := BondingCurveAddress(key.PublicKey().String(), PumpProgramID)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateWallet(pda), ErrOffCurve)
	assert.NoError(t, ValidateAddress(pda))
}

func TestFindProgramAddress(t *testing.T) {
	mint := sol.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	seeds := [][]byte{[]byte("bonding-curve"), mint.Bytes()}

	addr, bump, err := FindProgramAddress(seeds, PumpProgramID)
	require.NoError(t, err)

	program := sol.MustPublicKeyFromBase58(PumpProgramID)
	want, wantBump, err := sol.FindProgramAddress(seeds, program)
	require.NoError(t, err)
	assert.Equal(t, want.String(), addr)
	assert.Equal(t, wantBump, bump)

	// the address is the hash for the returned bump
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(program.Bytes())
	h.Write([]byte(pdaMarker))
	assert.Equal(t, base58.Encode(h.Sum(nil)), addr)
	assert.False(t, IsOnCurve(h.Sum(nil)))
}

func TestFindProgramAddress_SeedLimits(t *testing.T) {
	_, _, err := FindProgramAddress([][]byte{make([]byte, 33)}, PumpProgramID)
	assert.Error(t, err)

	_, _, err = FindProgramAddress(nil, "bad")
	assert.Error(t, err)
}
