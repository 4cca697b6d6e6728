package memory

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/govm-net/clicker/context"
	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/types"
)

type account struct {
	owner    types.Address
	lamports uint64
	data     []byte
}

func (a *account) clone() *account {
	c := *a
	c.data = append([]byte(nil), a.data...)
	return &c
}

// defaultBlockchainContext implements types.BlockchainContext in memory
type defaultBlockchainContext struct {
	// Block information
	blockHeight uint64
	blockTime   int64
	blockHash   types.Hash

	accounts map[types.Address]*account
	events   []types.Event
	txs      map[types.Hash]types.TxRecord

	mu     sync.Mutex // guards the fields above
	execMu sync.Mutex // serializes Atomic
}

type snapshot struct {
	accounts map[types.Address]*account
	events   []types.Event
	txs      map[types.Hash]types.TxRecord
}

func init() {
	if err := context.Register(context.MemoryContextType, NewBlockchainContext); err != nil {
		panic(err)
	}
}

// NewBlockchainContext creates an empty in-memory ledger. params is unused.
func NewBlockchainContext(params map[string]any) (types.BlockchainContext, error) {
	return newContext(), nil
}

func newContext() *defaultBlockchainContext {
	return &defaultBlockchainContext{
		accounts: make(map[types.Address]*account),
		txs:      make(map[types.Hash]types.TxRecord),
	}
}

func (ctx *defaultBlockchainContext) SetBlockInfo(height uint64, time int64, hash types.Hash) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.blockHeight = height
	ctx.blockTime = time
	ctx.blockHash = hash
	return nil
}

func (ctx *defaultBlockchainContext) BlockHeight() uint64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.blockHeight
}

func (ctx *defaultBlockchainContext) BlockTime() int64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.blockTime
}

func (ctx *defaultBlockchainContext) Balance(addr types.Address) uint64 {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if acc, ok := ctx.accounts[addr]; ok {
		return acc.lamports
	}
	return 0
}

// Airdrop mints lamports into addr, creating a system account when needed.
func (ctx *defaultBlockchainContext) Airdrop(addr types.Address, amount uint64) error {
	ctx.execMu.Lock()
	defer ctx.execMu.Unlock()
	return ctx.airdrop(addr, amount)
}

func (ctx *defaultBlockchainContext) airdrop(addr types.Address, amount uint64) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	acc, ok := ctx.accounts[addr]
	if !ok {
		acc = &account{owner: core.SystemProgram}
		ctx.accounts[addr] = acc
	}
	acc.lamports += amount
	return nil
}

func (ctx *defaultBlockchainContext) Transfer(from, to types.Address, amount uint64) error {
	ctx.execMu.Lock()
	defer ctx.execMu.Unlock()
	return ctx.transfer(from, to, amount)
}

func (ctx *defaultBlockchainContext) transfer(from, to types.Address, amount uint64) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	src, ok := ctx.accounts[from]
	if !ok || src.lamports < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, core.ErrInsufficientFunds)
	}
	dst, ok := ctx.accounts[to]
	if !ok {
		dst = &account{owner: core.SystemProgram}
		ctx.accounts[to] = dst
	}
	src.lamports -= amount
	dst.lamports += amount
	return nil
}

func (ctx *defaultBlockchainContext) CreateAccount(program, id, payer types.Address, space int, lamports uint64) (types.VMObject, error) {
	ctx.execMu.Lock()
	defer ctx.execMu.Unlock()
	return ctx.createAccount(program, id, payer, space, lamports, true)
}

func (ctx *defaultBlockchainContext) createAccount(program, id, payer types.Address, space int, lamports uint64, guarded bool) (types.VMObject, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if space < 0 {
		return nil, fmt.Errorf("space %d: %w", space, core.ErrInvalidArgument)
	}
	if _, exists := ctx.accounts[id]; exists {
		return nil, fmt.Errorf("create account %s: %w", id, core.ErrAccountInUse)
	}
	src, ok := ctx.accounts[payer]
	if !ok || src.lamports < lamports {
		return nil, fmt.Errorf("fund account %s from %s: %w", id, payer, core.ErrInsufficientFunds)
	}
	src.lamports -= lamports
	ctx.accounts[id] = &account{
		owner:    program,
		lamports: lamports,
		data:     make([]byte, space),
	}
	return &vmObject{ctx: ctx, id: id, owner: program, guarded: guarded}, nil
}

func (ctx *defaultBlockchainContext) GetAccount(id types.Address) (types.VMObject, error) {
	return ctx.getAccount(id, true)
}

func (ctx *defaultBlockchainContext) getAccount(id types.Address, guarded bool) (types.VMObject, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	acc, ok := ctx.accounts[id]
	if !ok {
		return nil, fmt.Errorf("get account %s: %w", id, core.ErrObjectNotFound)
	}
	return &vmObject{ctx: ctx, id: id, owner: acc.owner, guarded: guarded}, nil
}

// AccountsByOwner lists the accounts owned by program ordered by address.
func (ctx *defaultBlockchainContext) AccountsByOwner(program types.Address) ([]types.VMObject, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	var ids []types.Address
	for id, acc := range ctx.accounts {
		if acc.owner == program {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })

	objs := make([]types.VMObject, 0, len(ids))
	for _, id := range ids {
		objs = append(objs, &vmObject{ctx: ctx, id: id, owner: program, guarded: true})
	}
	return objs, nil
}

// Atomic restores the snapshot taken before fn when fn fails or panics.
// Writes through the ledger itself wait until fn is done, so a rollback
// only undoes what fn wrote through the view it was given.
func (ctx *defaultBlockchainContext) Atomic(fn func(types.BlockchainContext) error) (err error) {
	ctx.execMu.Lock()
	defer ctx.execMu.Unlock()

	snap := ctx.snapshot()
	defer func() {
		if r := recover(); r != nil {
			ctx.restore(snap)
			panic(r)
		}
		if err != nil {
			ctx.restore(snap)
		}
	}()
	return fn(&atomicView{ctx})
}

func (ctx *defaultBlockchainContext) snapshot() snapshot {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	s := snapshot{
		accounts: make(map[types.Address]*account, len(ctx.accounts)),
		events:   append([]types.Event(nil), ctx.events...),
		txs:      make(map[types.Hash]types.TxRecord, len(ctx.txs)),
	}
	for id, acc := range ctx.accounts {
		s.accounts[id] = acc.clone()
	}
	for h, rec := range ctx.txs {
		s.txs[h] = rec
	}
	return s
}

func (ctx *defaultBlockchainContext) restore(s snapshot) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.accounts = s.accounts
	ctx.events = s.events
	ctx.txs = s.txs
}

func (ctx *defaultBlockchainContext) Log(txHash types.Hash, contract types.Address, eventName string, keyValues ...any) {
	ctx.execMu.Lock()
	defer ctx.execMu.Unlock()
	ctx.log(txHash, contract, eventName, keyValues...)
}

func (ctx *defaultBlockchainContext) log(txHash types.Hash, contract types.Address, eventName string, keyValues ...any) {
	ctx.mu.Lock()
	ctx.events = append(ctx.events, types.Event{
		BlockHeight: ctx.blockHeight,
		TxHash:      txHash,
		Contract:    contract,
		Name:        eventName,
		KeyValues:   keyValues,
	})
	height := ctx.blockHeight
	ctx.mu.Unlock()

	params := []any{
		"block", height,
		"tx", txHash,
		"contract", contract,
		"event", eventName,
	}
	params = append(params, keyValues...)
	slog.Info("Contract event", params...)
}

func (ctx *defaultBlockchainContext) Events(txHash types.Hash) ([]types.Event, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	var out []types.Event
	for _, ev := range ctx.events {
		if ev.TxHash == txHash {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (ctx *defaultBlockchainContext) RecordTransaction(rec types.TxRecord) error {
	ctx.execMu.Lock()
	defer ctx.execMu.Unlock()
	return ctx.recordTransaction(rec)
}

func (ctx *defaultBlockchainContext) recordTransaction(rec types.TxRecord) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if _, exists := ctx.txs[rec.Hash]; exists {
		return fmt.Errorf("record %s: %w", rec.Hash, types.ErrDuplicateTransaction)
	}
	ctx.txs[rec.Hash] = rec
	return nil
}

func (ctx *defaultBlockchainContext) Transaction(hash types.Hash) (types.TxRecord, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	rec, ok := ctx.txs[hash]
	if !ok {
		return types.TxRecord{}, fmt.Errorf("transaction %s: %w", hash, types.ErrTransactionNotFound)
	}
	return rec, nil
}

func (ctx *defaultBlockchainContext) Close() error {
	return nil
}

// atomicView is the ledger as seen from inside Atomic. Its writes skip
// execMu, which Atomic already holds.
type atomicView struct {
	*defaultBlockchainContext
}

func (v *atomicView) Airdrop(addr types.Address, amount uint64) error {
	return v.airdrop(addr, amount)
}

func (v *atomicView) Transfer(from, to types.Address, amount uint64) error {
	return v.transfer(from, to, amount)
}

func (v *atomicView) CreateAccount(program, id, payer types.Address, space int, lamports uint64) (types.VMObject, error) {
	return v.createAccount(program, id, payer, space, lamports, false)
}

func (v *atomicView) GetAccount(id types.Address) (types.VMObject, error) {
	return v.getAccount(id, false)
}

func (v *atomicView) AccountsByOwner(program types.Address) ([]types.VMObject, error) {
	objs, err := v.defaultBlockchainContext.AccountsByOwner(program)
	for _, obj := range objs {
		obj.(*vmObject).guarded = false
	}
	return objs, err
}

func (v *atomicView) Atomic(fn func(types.BlockchainContext) error) error {
	return fmt.Errorf("nested Atomic: %w", core.ErrInvalidArgument)
}

func (v *atomicView) Log(txHash types.Hash, contract types.Address, eventName string, keyValues ...any) {
	v.log(txHash, contract, eventName, keyValues...)
}

func (v *atomicView) RecordTransaction(rec types.TxRecord) error {
	return v.recordTransaction(rec)
}

// vmObject is a handle on an account; reads go to the live ledger state.
// Guarded handles came from outside Atomic and wait for it before writing.
type vmObject struct {
	ctx     *defaultBlockchainContext
	id      types.Address
	owner   types.Address
	guarded bool
}

func (o *vmObject) ID() types.Address {
	return o.id
}

func (o *vmObject) Owner() types.Address {
	return o.owner
}

func (o *vmObject) account() *account {
	acc, ok := o.ctx.accounts[o.id]
	if !ok {
		return &account{}
	}
	return acc
}

func (o *vmObject) Lamports() uint64 {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	return o.account().lamports
}

func (o *vmObject) Space() int {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	return len(o.account().data)
}

func (o *vmObject) Data() []byte {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	return append([]byte(nil), o.account().data...)
}

func (o *vmObject) SetData(data []byte) error {
	if o.guarded {
		o.ctx.execMu.Lock()
		defer o.ctx.execMu.Unlock()
	}
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	acc, ok := o.ctx.accounts[o.id]
	if !ok {
		return fmt.Errorf("set data %s: %w", o.id, core.ErrObjectNotFound)
	}
	if len(data) != len(acc.data) {
		return fmt.Errorf("set data %s: %d bytes into %d: %w", o.id, len(data), len(acc.data), core.ErrInvalidDataLength)
	}
	copy(acc.data, data)
	return nil
}
