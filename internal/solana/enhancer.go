package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solana-curve-guard/internal/domain"
)

// ComputeBudgetProgramID owns the compute unit limit and price instructions.
var ComputeBudgetProgramID = sol.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// Compute budget instruction discriminators.
const (
	ixSetComputeUnitLimit uint8 = 2
	ixSetComputeUnitPrice uint8 = 3
)

// Enhancer decodes submitted transactions, adds the compute budget to
// unsigned ones and signs them with the service key.
type Enhancer struct {
	signer Signer // nil when the service holds no key
	logger *zap.Logger
}

// NewEnhancer creates an enhancer. signer may be nil, in which case only
// presigned transactions are accepted.
func NewEnhancer(signer Signer, logger *zap.Logger) *Enhancer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enhancer{signer: signer, logger: logger}
}

// Enhance implements the submitter's transaction preparation step.
// Presigned transactions pass through untouched; modifying them would
// invalidate their signatures.
func (e *Enhancer) Enhance(ctx context.Context, txBase64 string, plan domain.FeePlan) (*domain.PreparedTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return nil, domain.NewValidationError("transactions", "not valid base64: "+err.Error())
	}
	tx, err := sol.TransactionFromBytes(raw)
	if err != nil {
		return nil, domain.NewValidationError("transactions", "not a valid transaction: "+err.Error())
	}

	if isSigned(tx) {
		return &domain.PreparedTx{Raw: raw, Signature: tx.Signatures[0].String()}, nil
	}

	if e.signer == nil {
		return nil, domain.NewValidationError("transactions", "transaction is unsigned and no signing key is configured")
	}
	if err := e.checkSigners(tx); err != nil {
		return nil, err
	}

	enhanced := false
	if !hasComputeBudget(tx) {
		if err := addComputeBudget(tx, plan); err != nil {
			return nil, fmt.Errorf("add compute budget: %w", err)
		}
		enhanced = true
	}

	// drop the zeroed placeholders before signing
	tx.Signatures = nil
	if err := e.signer.Sign(tx); err != nil {
		return nil, err
	}
	out, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}

	e.logger.Debug("transaction prepared",
		zap.String("signature", tx.Signatures[0].String()),
		zap.Bool("compute_budget_added", enhanced),
		zap.Uint32("compute_units", plan.ComputeUnits),
		zap.Uint64("micro_lamports", plan.MicroLamports),
	)
	return &domain.PreparedTx{Raw: out, Signature: tx.Signatures[0].String(), Enhanced: enhanced}, nil
}

// checkSigners requires the service key to be the only signer.
func (e *Enhancer) checkSigners(tx *sol.Transaction) error {
	h := tx.Message.Header
	if h.NumRequiredSignatures != 1 || len(tx.Message.AccountKeys) == 0 {
		return domain.NewValidationError("transactions", fmt.Sprintf("expected exactly one signer, got %d", h.NumRequiredSignatures))
	}
	if payer := tx.Message.AccountKeys[0]; !payer.Equals(e.signer.PublicKey()) {
		return domain.NewValidationError("transactions", fmt.Sprintf("fee payer %s is not the configured signer", payer))
	}
	return nil
}

func isSigned(tx *sol.Transaction) bool {
	for _, sig := range tx.Signatures {
		if sig != (sol.Signature{}) {
			return true
		}
	}
	return false
}

func hasComputeBudget(tx *sol.Transaction) bool {
	keys := tx.Message.AccountKeys
	for _, ix := range tx.Message.Instructions {
		if int(ix.ProgramIDIndex) < len(keys) && keys[ix.ProgramIDIndex].Equals(ComputeBudgetProgramID) {
			return true
		}
	}
	return false
}

// addComputeBudget prepends SetComputeUnitLimit and SetComputeUnitPrice.
// The program key is appended to the static keys as readonly unsigned;
// indexes into address-table accounts shift by one.
func addComputeBudget(tx *sol.Transaction, plan domain.FeePlan) error {
	msg := &tx.Message

	programIdx := -1
	for i, k := range msg.AccountKeys {
		if k.Equals(ComputeBudgetProgramID) {
			programIdx = i
			break
		}
	}
	if programIdx < 0 {
		if len(msg.AccountKeys) >= 256 {
			return errors.New("account key limit reached")
		}
		staticLen := uint16(len(msg.AccountKeys))
		for i := range msg.Instructions {
			for j, a := range msg.Instructions[i].Accounts {
				if a >= staticLen {
					msg.Instructions[i].Accounts[j] = a + 1
				}
			}
		}
		msg.AccountKeys = append(msg.AccountKeys, ComputeBudgetProgramID)
		msg.Header.NumReadonlyUnsignedAccounts++
		programIdx = int(staticLen)
	}

	limit, err := budgetData(ixSetComputeUnitLimit, func(enc *bin.Encoder) error {
		return enc.WriteUint32(plan.ComputeUnits, binary.LittleEndian)
	})
	if err != nil {
		return err
	}
	price, err := budgetData(ixSetComputeUnitPrice, func(enc *bin.Encoder) error {
		return enc.WriteUint64(plan.MicroLamports, binary.LittleEndian)
	})
	if err != nil {
		return err
	}

	budget := []sol.CompiledInstruction{
		{ProgramIDIndex: uint16(programIdx), Accounts: []uint16{}, Data: limit},
		{ProgramIDIndex: uint16(programIdx), Accounts: []uint16{}, Data: price},
	}
	msg.Instructions = append(budget, msg.Instructions...)
	return nil
}

func budgetData(discriminator uint8, write func(enc *bin.Encoder) error) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	if err := enc.WriteUint8(discriminator); err != nil {
		return nil, err
	}
	if err := write(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
