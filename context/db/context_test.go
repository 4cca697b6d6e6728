package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/govm-net/clicker/context"
	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Context {
	bc, err := NewContext(map[string]any{
		"db_path": filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { bc.Close() })
	return bc.(*Context)
}

func addr(b byte) core.Address {
	var a core.Address
	a[0] = b
	return a
}

func TestRegistered(t *testing.T) {
	bc, err := context.Get(context.DBContextType, map[string]any{
		"db_path": filepath.Join(t.TempDir(), "nested", "reg.db"),
	})
	require.NoError(t, err)
	require.NoError(t, bc.Close())
}

func TestBlockContext(t *testing.T) {
	ctx := setupTestDB(t)
	assert.Equal(t, uint64(0), ctx.BlockHeight())

	require.NoError(t, ctx.SetBlockInfo(100, 1234567890, core.Hash{1}))
	assert.Equal(t, uint64(100), ctx.BlockHeight())
	assert.Equal(t, int64(1234567890), ctx.BlockTime())

	// setting the same height again updates the row
	require.NoError(t, ctx.SetBlockInfo(100, 42, core.Hash{2}))
	assert.Equal(t, int64(42), ctx.BlockTime())

	var count int64
	require.NoError(t, ctx.db.Model(&DBBlock{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBlockSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	bc, err := NewContext(map[string]any{"db_path": path})
	require.NoError(t, err)
	require.NoError(t, bc.SetBlockInfo(5, 50, core.Hash{}))
	require.NoError(t, bc.SetBlockInfo(9, 90, core.Hash{}))
	require.NoError(t, bc.Airdrop(addr(1), 77))
	require.NoError(t, bc.Close())

	bc, err = NewContext(map[string]any{"db_path": path})
	require.NoError(t, err)
	defer bc.Close()
	assert.Equal(t, uint64(9), bc.BlockHeight())
	assert.Equal(t, int64(90), bc.BlockTime())
	assert.Equal(t, uint64(77), bc.Balance(addr(1)))
}

func TestBalanceTransfer(t *testing.T) {
	ctx := setupTestDB(t)
	addr1, addr2 := addr(1), addr(2)

	require.NoError(t, ctx.Airdrop(addr1, 1000))
	require.NoError(t, ctx.Airdrop(addr1, 500))
	assert.Equal(t, uint64(1500), ctx.Balance(addr1))
	assert.Equal(t, uint64(0), ctx.Balance(addr2))

	require.NoError(t, ctx.Transfer(addr1, addr2, 500))
	assert.Equal(t, uint64(1000), ctx.Balance(addr1))
	assert.Equal(t, uint64(500), ctx.Balance(addr2))

	assert.ErrorIs(t, ctx.Transfer(addr1, addr2, 5000), core.ErrInsufficientFunds)
	assert.ErrorIs(t, ctx.Transfer(addr(3), addr2, 1), core.ErrInsufficientFunds)
	assert.Equal(t, uint64(1000), ctx.Balance(addr1))
}

func TestAccountLifecycle(t *testing.T) {
	ctx := setupTestDB(t)
	program, id, payer := addr(9), addr(2), addr(1)
	require.NoError(t, ctx.Airdrop(payer, 10_000))

	obj, err := ctx.CreateAccount(program, id, payer, 4, 3_000)
	require.NoError(t, err)
	assert.Equal(t, id, obj.ID())
	assert.Equal(t, program, obj.Owner())
	assert.Equal(t, 4, obj.Space())
	assert.Equal(t, uint64(3_000), obj.Lamports())
	assert.Equal(t, []byte{0, 0, 0, 0}, obj.Data())
	assert.Equal(t, uint64(7_000), ctx.Balance(payer))

	require.NoError(t, obj.SetData([]byte{1, 2, 3, 4}))
	assert.ErrorIs(t, obj.SetData([]byte{1, 2}), core.ErrInvalidDataLength)

	got, err := ctx.GetAccount(id)
	require.NoError(t, err)
	assert.Equal(t, program, got.Owner())
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Data())

	_, err = ctx.CreateAccount(program, id, payer, 4, 3_000)
	assert.ErrorIs(t, err, core.ErrAccountInUse)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Data())
	assert.Equal(t, uint64(7_000), ctx.Balance(payer))

	_, err = ctx.CreateAccount(program, addr(3), payer, 4, 1_000_000)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	_, err = ctx.GetAccount(addr(3))
	assert.ErrorIs(t, err, core.ErrObjectNotFound)

	_, err = ctx.CreateAccount(program, addr(4), payer, -1, 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	// an address that only holds airdropped lamports is taken as well
	require.NoError(t, ctx.Airdrop(addr(5), 500))
	_, err = ctx.CreateAccount(program, addr(5), payer, 4, 3_000)
	assert.ErrorIs(t, err, core.ErrAccountInUse)
	assert.Equal(t, uint64(500), ctx.Balance(addr(5)))
	assert.Equal(t, uint64(7_000), ctx.Balance(payer))
}

func TestAccountsByOwner(t *testing.T) {
	ctx := setupTestDB(t)
	program, payer := addr(9), addr(1)
	require.NoError(t, ctx.Airdrop(payer, 10_000))

	for _, b := range []byte{5, 3, 4} {
		_, err := ctx.CreateAccount(program, addr(b), payer, 1, 10)
		require.NoError(t, err)
	}
	_, err := ctx.CreateAccount(addr(8), addr(6), payer, 1, 10)
	require.NoError(t, err)

	objs, err := ctx.AccountsByOwner(program)
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, addr(3), objs[0].ID())
	assert.Equal(t, addr(4), objs[1].ID())
	assert.Equal(t, addr(5), objs[2].ID())
}

func TestAtomicRollback(t *testing.T) {
	ctx := setupTestDB(t)
	program, payer := addr(9), addr(1)
	require.NoError(t, ctx.Airdrop(payer, 10_000))
	_, err := ctx.CreateAccount(program, addr(2), payer, 1, 10)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = ctx.Atomic(func(bc types.BlockchainContext) error {
		obj, err := bc.GetAccount(addr(2))
		require.NoError(t, err)
		require.NoError(t, obj.SetData([]byte{7}))
		assert.Equal(t, []byte{7}, obj.Data())
		_, err = bc.CreateAccount(program, addr(3), payer, 1, 10)
		require.NoError(t, err)
		bc.Log(core.Hash{1}, program, "touched")
		require.NoError(t, bc.RecordTransaction(types.TxRecord{Hash: core.Hash{1}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	obj, err := ctx.GetAccount(addr(2))
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, obj.Data())
	_, err = ctx.GetAccount(addr(3))
	assert.ErrorIs(t, err, core.ErrObjectNotFound)
	assert.Equal(t, uint64(9_990), ctx.Balance(payer))
	events, err := ctx.Events(core.Hash{1})
	require.NoError(t, err)
	assert.Empty(t, events)
	_, err = ctx.Transaction(core.Hash{1})
	assert.ErrorIs(t, err, types.ErrTransactionNotFound)
}

func TestAtomicRollbackOnPanic(t *testing.T) {
	ctx := setupTestDB(t)
	require.NoError(t, ctx.Airdrop(addr(1), 100))

	assert.Panics(t, func() {
		_ = ctx.Atomic(func(bc types.BlockchainContext) error {
			require.NoError(t, bc.Transfer(addr(1), addr(2), 100))
			panic("halt")
		})
	})
	assert.Equal(t, uint64(100), ctx.Balance(addr(1)))
	assert.Equal(t, uint64(0), ctx.Balance(addr(2)))
}

func TestAtomicCommit(t *testing.T) {
	ctx := setupTestDB(t)
	require.NoError(t, ctx.Airdrop(addr(1), 100))

	err := ctx.Atomic(func(bc types.BlockchainContext) error {
		return bc.Transfer(addr(1), addr(2), 40)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(60), ctx.Balance(addr(1)))
	assert.Equal(t, uint64(40), ctx.Balance(addr(2)))
}

func TestEventsAndTransactions(t *testing.T) {
	ctx := setupTestDB(t)
	require.NoError(t, ctx.SetBlockInfo(7, 0, core.Hash{}))

	ctx.Log(core.Hash{1}, addr(9), "first", "k", 1, "who", addr(3))
	ctx.Log(core.Hash{1}, addr(9), "second")
	ctx.Log(core.Hash{2}, addr(9), "other")

	events, err := ctx.Events(core.Hash{1})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Name)
	assert.Equal(t, "second", events[1].Name)
	assert.Equal(t, uint64(7), events[0].BlockHeight)
	assert.Equal(t, addr(9), events[0].Contract)
	// values are JSON decoded; addresses come back in their text form
	assert.Equal(t, []any{"k", float64(1), "who", addr(3).String()}, events[0].KeyValues)

	rec := types.TxRecord{
		Hash:        core.Hash{1},
		BlockHeight: 7,
		FeePayer:    addr(1),
		ComputeUsed: 10,
		Success:     false,
		Error:       "program error 6000: InvalidPlayer",
	}
	require.NoError(t, ctx.RecordTransaction(rec))
	assert.ErrorIs(t, ctx.RecordTransaction(rec), types.ErrDuplicateTransaction)
	got, err := ctx.Transaction(core.Hash{1})
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = ctx.Transaction(core.Hash{3})
	assert.ErrorIs(t, err, types.ErrTransactionNotFound)
}
