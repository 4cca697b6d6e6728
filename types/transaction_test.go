package types

import (
	"testing"

	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *wallet.Keypair {
	kp, err := wallet.Generate()
	require.NoError(t, err)
	return kp
}

func TestRentExemptMinimum(t *testing.T) {
	assert.Equal(t, uint64(890880), RentExemptMinimum(0))
	assert.Equal(t, uint64(1197120), RentExemptMinimum(44))
}

func TestRequiredSigners(t *testing.T) {
	payer, other := newKey(t), newKey(t)
	program := newKey(t).Address()

	tx := NewTransaction(payer.Address(), 1,
		Instruction{Program: program, Accounts: []AccountMeta{
			{Address: other.Address(), IsSigner: true, IsWritable: true},
			{Address: payer.Address(), IsSigner: true},
		}},
		Instruction{Program: program, Accounts: []AccountMeta{
			{Address: other.Address(), IsSigner: true},
		}},
	)
	assert.Equal(t, []Address{payer.Address(), other.Address()}, tx.RequiredSigners())
}

func TestVerifySignatures(t *testing.T) {
	payer, other := newKey(t), newKey(t)
	program := newKey(t).Address()
	ix := Instruction{
		Program:  program,
		Accounts: []AccountMeta{{Address: other.Address(), IsSigner: true, IsWritable: true}},
		Data:     []byte{1, 2, 3},
	}

	t.Run("all signed", func(t *testing.T) {
		tx := NewTransaction(payer.Address(), 1, ix).Sign(payer, other)
		verified, err := tx.VerifySignatures()
		require.NoError(t, err)
		assert.True(t, verified[payer.Address()])
		assert.True(t, verified[other.Address()])
	})

	t.Run("missing signer", func(t *testing.T) {
		tx := NewTransaction(payer.Address(), 1, ix).Sign(payer)
		_, err := tx.VerifySignatures()
		assert.ErrorIs(t, err, core.ErrMissingSignature)
	})

	t.Run("tampered after signing", func(t *testing.T) {
		tx := NewTransaction(payer.Address(), 1, ix).Sign(payer, other)
		tx.Instructions[0].Data = []byte{9}
		_, err := tx.VerifySignatures()
		assert.ErrorIs(t, err, core.ErrInvalidSignature)
	})

	t.Run("empty", func(t *testing.T) {
		tx := NewTransaction(payer.Address(), 1).Sign(payer)
		_, err := tx.VerifySignatures()
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})
}

func TestHashChangesWithNonce(t *testing.T) {
	payer := newKey(t)
	ix := Instruction{Program: newKey(t).Address()}

	a := NewTransaction(payer.Address(), 1, ix).Sign(payer)
	b := NewTransaction(payer.Address(), 2, ix).Sign(payer)
	again := NewTransaction(payer.Address(), 1, ix).Sign(payer)

	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Hash(), again.Hash())
}
