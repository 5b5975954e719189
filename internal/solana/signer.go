package solana

import (
	"errors"
	"fmt"
	"os"
	"strings"

	sol "github.com/gagliardetto/solana-go"
)

// Signer signs transactions whose fee payer it controls.
type Signer interface {
	PublicKey() sol.PublicKey
	Sign(tx *sol.Transaction) error
}

// KeypairSigner signs with one in-memory ed25519 key.
type KeypairSigner struct {
	key sol.PrivateKey
}

// NewKeypairSigner wraps key.
func NewKeypairSigner(key sol.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

// LoadKeypairSigner reads a base58 private key from a file or, when path is
// empty, from the raw value.
func LoadKeypairSigner(path, raw string) (*KeypairSigner, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read keypair: %w", err)
		}
		raw = string(data)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("no signing key configured")
	}
	key, err := sol.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	return NewKeypairSigner(key), nil
}

// PublicKey implements Signer.
func (s *KeypairSigner) PublicKey() sol.PublicKey {
	return s.key.PublicKey()
}

// Sign implements Signer.
func (s *KeypairSigner) Sign(tx *sol.Transaction) error {
	pub := s.key.PublicKey()
	_, err := tx.Sign(func(k sol.PublicKey) *sol.PrivateKey {
		if k.Equals(pub) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	return nil
}
