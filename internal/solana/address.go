package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PumpProgramID is the bonding-curve program whose PDAs are derived here.
const PumpProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

const (
	pdaMarker     = "ProgramDerivedAddress"
	maxSeedLength = 32
	maxSeeds      = 16
)

// Address errors.
var (
	ErrInvalidAddress = errors.New("invalid base58 address")
	ErrOffCurve       = errors.New("address is not an ed25519 public key")
	ErrNoViableBump   = errors.New("unable to find a viable program address bump")
)

// DecodeAddress decodes a base58 public key.
func DecodeAddress(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	return b, nil
}

// ValidateAddress checks that s is a 32-byte base58 key. PDAs pass.
func ValidateAddress(s string) error {
	_, err := DecodeAddress(s)
	return err
}

// ValidateWallet checks that s is a signing key, i.e. a point on the curve.
func ValidateWallet(s string) error {
	b, err := DecodeAddress(s)
	if err != nil {
		return err
	}
	if !IsOnCurve(b) {
		return ErrOffCurve
	}
	return nil
}

// IsOnCurve reports whether b encodes an ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// FindProgramAddress derives the canonical PDA for seeds under programID,
// returning the address and its bump.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodeAddress(programID)
	if err != nil {
		return "", 0, fmt.Errorf("program id: %w", err)
	}
	if len(seeds) > maxSeeds-1 {
		return "", 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) > maxSeedLength {
			return "", 0, fmt.Errorf("seed %d longer than %d bytes", i, maxSeedLength)
		}
	}

	for bump := 255; bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !IsOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// BondingCurveAddress derives the bonding-curve account of mint.
func BondingCurveAddress(mint, programID string) (string, error) {
	m, err := DecodeAddress(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	addr, _, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), m}, programID)
	return addr, err
}
