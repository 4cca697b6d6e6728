package vm

import (
	"fmt"

	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/gas"
	"github.com/govm-net/clicker/types"
)

// ExecutionContext is the core.Context a program sees while one instruction
// runs. It only exposes the accounts the instruction lists.
type ExecutionContext struct {
	bc       types.BlockchainContext
	program  core.Address
	txHash   core.Hash
	signed   map[core.Address]bool
	accounts map[core.Address]types.AccountMeta
	meter    *gas.Meter
}

// NewExecutionContext builds the context for ix. signed is the set of
// addresses whose signatures verified.
func NewExecutionContext(bc types.BlockchainContext, tx *types.Transaction, ix types.Instruction, signed map[core.Address]bool, meter *gas.Meter) *ExecutionContext {
	accounts := make(map[core.Address]types.AccountMeta, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		prev := accounts[meta.Address]
		prev.Address = meta.Address
		prev.IsSigner = prev.IsSigner || meta.IsSigner
		prev.IsWritable = prev.IsWritable || meta.IsWritable
		accounts[meta.Address] = prev
	}
	return &ExecutionContext{
		bc:       bc,
		program:  ix.Program,
		txHash:   tx.Hash(),
		signed:   signed,
		accounts: accounts,
		meter:    meter,
	}
}

// charge panics when the budget is exhausted; the engine turns the panic
// back into the error.
func (ctx *ExecutionContext) charge(amount int64) {
	if err := ctx.meter.Consume(amount); err != nil {
		panic(err)
	}
}

func (ctx *ExecutionContext) BlockHeight() uint64 {
	return ctx.bc.BlockHeight()
}

func (ctx *ExecutionContext) BlockTime() int64 {
	return ctx.bc.BlockTime()
}

func (ctx *ExecutionContext) ContractAddress() core.Address {
	return ctx.program
}

func (ctx *ExecutionContext) TransactionHash() core.Hash {
	return ctx.txHash
}

// IsSigner reports whether addr is listed as signer and its signature verified.
func (ctx *ExecutionContext) IsSigner(addr core.Address) bool {
	meta, ok := ctx.accounts[addr]
	return ok && meta.IsSigner && ctx.signed[addr]
}

func (ctx *ExecutionContext) Balance(addr core.Address) uint64 {
	ctx.charge(ComputeAccountRead)
	return ctx.bc.Balance(addr)
}

func (ctx *ExecutionContext) meta(addr core.Address) (types.AccountMeta, error) {
	meta, ok := ctx.accounts[addr]
	if !ok {
		return meta, fmt.Errorf("account %s: %w", addr, core.ErrAccountNotProvided)
	}
	return meta, nil
}

// CreateObject allocates id for the running program, funded rent exempt by
// payer. Both accounts must be listed writable and must sign.
func (ctx *ExecutionContext) CreateObject(id core.Address, payer core.Address, space int) (core.Object, error) {
	if err := ctx.meter.Consume(ComputeAccountCreate); err != nil {
		return nil, err
	}
	for _, addr := range []core.Address{id, payer} {
		meta, err := ctx.meta(addr)
		if err != nil {
			return nil, err
		}
		if !meta.IsWritable {
			return nil, fmt.Errorf("account %s: %w", addr, core.ErrAccountNotWritable)
		}
		if !ctx.IsSigner(addr) {
			return nil, fmt.Errorf("account %s: %w", addr, core.ErrMissingSignature)
		}
	}

	obj, err := ctx.bc.CreateAccount(ctx.program, id, payer, space, types.RentExemptMinimum(space))
	if err != nil {
		return nil, err
	}
	return &accountObject{VMObject: obj, ctx: ctx, writable: true}, nil
}

func (ctx *ExecutionContext) GetObject(id core.Address) (core.Object, error) {
	if err := ctx.meter.Consume(ComputeAccountRead); err != nil {
		return nil, err
	}
	meta, err := ctx.meta(id)
	if err != nil {
		return nil, err
	}
	obj, err := ctx.bc.GetAccount(id)
	if err != nil {
		return nil, err
	}
	return &accountObject{VMObject: obj, ctx: ctx, writable: meta.IsWritable}, nil
}

func (ctx *ExecutionContext) Log(eventName string, keyValues ...any) {
	ctx.charge(ComputeLog)
	ctx.bc.Log(ctx.txHash, ctx.program, eventName, keyValues...)
}

// accountObject guards writes: only the owning program may change data,
// and only through a writable account.
type accountObject struct {
	types.VMObject
	ctx      *ExecutionContext
	writable bool
}

func (o *accountObject) SetData(data []byte) error {
	if err := o.ctx.meter.Consume(ComputeAccountWrite); err != nil {
		return err
	}
	if !o.writable {
		return fmt.Errorf("account %s: %w", o.ID(), core.ErrAccountNotWritable)
	}
	if o.Owner() != o.ctx.program {
		return fmt.Errorf("account %s owned by %s: %w", o.ID(), o.Owner(), core.ErrInvalidOwner)
	}
	return o.VMObject.SetData(data)
}
