// Package types contains the host-side definitions shared by the ledger
// implementations and the execution engine.
package types

import (
	"github.com/govm-net/clicker/core"
)

type Address = core.Address
type Hash = core.Hash

// Rent parameters. An account is rent exempt once it holds two years of rent.
const (
	AccountStorageOverhead = 128
	LamportsPerByteYear    = 3480
	ExemptionThresholdYear = 2
)

// RentExemptMinimum returns the lamports an account of space bytes must hold.
func RentExemptMinimum(space int) uint64 {
	return uint64(AccountStorageOverhead+space) * LamportsPerByteYear * ExemptionThresholdYear
}

// Event is a program log entry stored by the ledger.
type Event struct {
	BlockHeight uint64  `json:"block_height"`
	TxHash      Hash    `json:"tx_hash"`
	Contract    Address `json:"contract"`
	Name        string  `json:"name"`
	KeyValues   []any   `json:"key_values,omitempty"`
}

// TxRecord is the outcome of an executed transaction.
type TxRecord struct {
	Hash        Hash    `json:"hash"`
	BlockHeight uint64  `json:"block_height"`
	FeePayer    Address `json:"fee_payer"`
	ComputeUsed int64   `json:"compute_used"`
	Success     bool    `json:"success"`
	Error       string  `json:"error,omitempty"`
}

// BlockchainContext is the ledger: accounts, balances, events and the
// transaction boundary. Programs never see it directly.
type BlockchainContext interface {
	// Block information
	SetBlockInfo(height uint64, time int64, hash Hash) error
	BlockHeight() uint64
	BlockTime() int64

	// Balances
	Balance(addr Address) uint64
	Airdrop(addr Address, amount uint64) error
	Transfer(from, to Address, amount uint64) error

	// Accounts. CreateAccount moves lamports from payer into the new account
	// and fails with core.ErrAccountInUse when id is already allocated.
	CreateAccount(program, id, payer Address, space int, lamports uint64) (VMObject, error)
	GetAccount(id Address) (VMObject, error)
	AccountsByOwner(program Address) ([]VMObject, error)

	// Atomic runs fn against a view of the ledger; nothing fn wrote survives
	// when it returns an error. Calls to Atomic are serialized and cannot
	// be nested; writes made outside fn are never undone by it.
	Atomic(fn func(BlockchainContext) error) error

	// Logs and events
	Log(txHash Hash, contract Address, eventName string, keyValues ...any)
	Events(txHash Hash) ([]Event, error)

	// Transactions
	RecordTransaction(rec TxRecord) error
	Transaction(hash Hash) (TxRecord, error)

	Close() error
}

// VMObject is an account as stored by the ledger.
type VMObject interface {
	ID() Address
	Owner() Address
	Lamports() uint64
	Space() int
	Data() []byte
	SetData(data []byte) error
}
