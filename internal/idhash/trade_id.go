// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TradeID computes a deterministic trade id for a confirmed trade reported
// without a signature, so retried reports of the same trade collide.
// Formula: SHA256(mint|wallet|direction|sol_amount|token_amount|timestamp_ms).
// Amounts must be passed in canonical decimal form. Returns 64 hex characters.
func TradeID(mint, wallet, direction, solAmount, tokenAmount string, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		mint,
		wallet,
		direction,
		solAmount,
		tokenAmount,
		timestampMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
