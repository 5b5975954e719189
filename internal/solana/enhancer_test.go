package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-curve-guard/internal/domain"
)

var testPlan = domain.FeePlan{ComputeUnits: 400_000, MicroLamports: 150_000}

// unsignedTx builds a one-signer transfer-shaped transaction in wire form
// with a zeroed signature placeholder.
func unsignedTx(t *testing.T, payer sol.PublicKey, extra ...sol.Instruction) (*sol.Transaction, string) {
	t.Helper()

	dest, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)

	ixs := append([]sol.Instruction{}, extra...)
	ixs = append(ixs, sol.NewInstruction(sol.SystemProgramID, sol.AccountMetaSlice{
		sol.Meta(payer).WRITE().SIGNER(),
		sol.Meta(dest.PublicKey()).WRITE(),
	}, []byte{2, 0, 0, 0, 0x40, 0x42, 0x0f, 0, 0, 0, 0, 0}))

	tx, err := sol.NewTransaction(ixs, sol.Hash{7}, sol.TransactionPayer(payer))
	require.NoError(t, err)

	tx.Signatures = make([]sol.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return tx, base64.StdEncoding.EncodeToString(raw)
}

func TestEnhancer_AddsComputeBudgetAndSigns(t *testing.T) {
	key, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)
	signer := NewKeypairSigner(key)

	orig, b64 := unsignedTx(t, key.PublicKey())

	prepared, err := NewEnhancer(signer, nil).Enhance(context.Background(), b64, testPlan)
	require.NoError(t, err)
	assert.True(t, prepared.Enhanced)

	out, err := sol.TransactionFromBytes(prepared.Raw)
	require.NoError(t, err)
	require.Len(t, out.Signatures, 1)
	assert.Equal(t, out.Signatures[0].String(), prepared.Signature)
	assert.NoError(t, out.VerifySignatures())

	msg := out.Message
	require.Len(t, msg.Instructions, 3)
	assert.Equal(t, orig.Message.Header.NumReadonlyUnsignedAccounts+1, msg.Header.NumReadonlyUnsignedAccounts)
	assert.Equal(t, orig.Message.Header.NumRequiredSignatures, msg.Header.NumRequiredSignatures)

	limit := msg.Instructions[0]
	assert.True(t, msg.AccountKeys[limit.ProgramIDIndex].Equals(ComputeBudgetProgramID))
	require.Len(t, limit.Data, 5)
	assert.Equal(t, byte(2), limit.Data[0])
	assert.Equal(t, uint32(400_000), binary.LittleEndian.Uint32(limit.Data[1:]))

	price := msg.Instructions[1]
	assert.True(t, msg.AccountKeys[price.ProgramIDIndex].Equals(ComputeBudgetProgramID))
	require.Len(t, price.Data, 9)
	assert.Equal(t, byte(3), price.Data[0])
	assert.Equal(t, uint64(150_000), binary.LittleEndian.Uint64(price.Data[1:]))

	// the original instruction still points at the same accounts
	transfer := msg.Instructions[2]
	assert.True(t, msg.AccountKeys[transfer.ProgramIDIndex].Equals(sol.SystemProgramID))
	assert.True(t, msg.AccountKeys[transfer.Accounts[0]].Equals(key.PublicKey()))
}

func TestEnhancer_PresignedPassesThrough(t *testing.T) {
	key, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)

	tx, _ := unsignedTx(t, key.PublicKey())
	tx.Signatures = nil
	require.NoError(t, NewKeypairSigner(key).Sign(tx))
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	// a presigned transaction needs no service key
	prepared, err := NewEnhancer(nil, nil).Enhance(context.Background(), base64.StdEncoding.EncodeToString(raw), testPlan)
	require.NoError(t, err)
	assert.False(t, prepared.Enhanced)
	assert.Equal(t, raw, prepared.Raw)
	assert.Equal(t, tx.Signatures[0].String(), prepared.Signature)
}

func TestEnhancer_KeepsExistingComputeBudget(t *testing.T) {
	key, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)

	budget := sol.NewInstruction(ComputeBudgetProgramID, sol.AccountMetaSlice{}, []byte{2, 0x40, 0x0d, 0x03, 0})
	_, b64 := unsignedTx(t, key.PublicKey(), budget)

	prepared, err := NewEnhancer(NewKeypairSigner(key), nil).Enhance(context.Background(), b64, testPlan)
	require.NoError(t, err)
	assert.False(t, prepared.Enhanced)

	out, err := sol.TransactionFromBytes(prepared.Raw)
	require.NoError(t, err)
	assert.Len(t, out.Message.Instructions, 2)
	assert.NoError(t, out.VerifySignatures())
}

func TestEnhancer_Rejections(t *testing.T) {
	key, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)
	other, err := sol.NewRandomPrivateKey()
	require.NoError(t, err)

	_, b64 := unsignedTx(t, key.PublicKey())

	tests := []struct {
		name   string
		signer Signer
		input  string
	}{
		{"not base64", NewKeypairSigner(key), "%%%"},
		{"not a transaction", NewKeypairSigner(key), base64.StdEncoding.EncodeToString([]byte{9, 9, 9})},
		{"no signer", nil, b64},
		{"foreign fee payer", NewKeypairSigner(other), b64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnhancer(tt.signer, nil).Enhance(context.Background(), tt.input, testPlan)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
