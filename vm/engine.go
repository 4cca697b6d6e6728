package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/govm-net/clicker/context"
	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/gas"
	"github.com/govm-net/clicker/types"
)

// Engine deploys native programs and executes transactions against a ledger
type Engine struct {
	config   *Config
	ctx      types.BlockchainContext // Blockchain context
	mu       sync.RWMutex
	programs map[core.Address]Program
	execMu   sync.Mutex
}

// Config represents engine configuration
type Config struct {
	ContextType   string         // Blockchain context type
	ContextParams map[string]any // Blockchain context parameters
	ComputeLimit  int64          // Compute units available to one transaction
}

// Receipt is the outcome of Execute. Err is the program or ledger failure
// that aborted the transaction; nothing it wrote was kept.
type Receipt struct {
	Hash         core.Hash
	ComputeUsed  int64
	ComputeLimit int64
	Events       []types.Event
	Err          error
}

func (r *Receipt) Success() bool {
	return r.Err == nil
}

// DefaultConfig returns an in-memory configuration.
func DefaultConfig() *Config {
	return &Config{
		ContextType:  string(context.MemoryContextType),
		ComputeLimit: DefaultComputeLimit,
	}
}

// NewEngine creates an engine on the ledger named by config.
func NewEngine(config *Config) (*Engine, error) {
	// Ensure configuration is valid
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, err := context.Get(context.ContextType(config.ContextType), config.ContextParams)
	if err != nil {
		return nil, fmt.Errorf("failed to get context: %w", err)
	}

	return &Engine{
		config:   config,
		ctx:      ctx,
		programs: make(map[core.Address]Program),
	}, nil
}

func (e *Engine) GetContext() types.BlockchainContext {
	return e.ctx
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.ComputeLimit <= 0 {
		return fmt.Errorf("invalid compute limit: %d", config.ComputeLimit)
	}

	return nil
}

// Deploy makes p callable at p.Address().
func (e *Engine) Deploy(p Program) error {
	addr := p.Address()
	if addr == core.SystemProgram {
		return fmt.Errorf("deploy %s at system program address: %w", p.Name(), core.ErrInvalidArgument)
	}
	if len(p.Handlers()) == 0 {
		return fmt.Errorf("deploy %s: no instructions: %w", p.Name(), core.ErrInvalidArgument)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.programs[addr]; ok {
		return fmt.Errorf("address %s already runs %s: %w", addr, prev.Name(), core.ErrAccountInUse)
	}
	e.programs[addr] = p
	slog.Info("Program deployed", "program", p.Name(), "address", addr)
	return nil
}

// Program returns the program deployed at addr.
func (e *Engine) Program(addr core.Address) (Program, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.programs[addr]
	if !ok {
		return nil, fmt.Errorf("program %s: %w", addr, core.ErrContractNotFound)
	}
	return p, nil
}

// Programs lists deployed programs ordered by address.
func (e *Engine) Programs() []Program {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Program, 0, len(e.programs))
	for _, p := range e.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address().Compare(out[j].Address()) < 0 })
	return out
}

// AdvanceBlock opens the next block at time now. It waits for the
// transaction in flight so one transaction never spans two blocks.
func (e *Engine) AdvanceBlock(now int64) error {
	e.execMu.Lock()
	defer e.execMu.Unlock()

	height := e.ctx.BlockHeight() + 1
	seed := binary.LittleEndian.AppendUint64(nil, height)
	seed = binary.LittleEndian.AppendUint64(seed, uint64(now))
	return e.ctx.SetBlockInfo(height, now, core.GetHash(seed))
}

// Execute runs every instruction of tx or none of them. The returned error
// reports a transaction the ledger refused to run (bad signatures, replay);
// program failures are reported in Receipt.Err and still recorded.
func (e *Engine) Execute(tx *types.Transaction) (*Receipt, error) {
	signed, err := tx.VerifySignatures()
	if err != nil {
		return nil, fmt.Errorf("rejected transaction: %w", err)
	}

	e.execMu.Lock()
	defer e.execMu.Unlock()

	hash := tx.Hash()
	if _, err := e.ctx.Transaction(hash); err == nil {
		return nil, fmt.Errorf("transaction %s: %w", hash, types.ErrDuplicateTransaction)
	} else if !errors.Is(err, types.ErrTransactionNotFound) {
		return nil, err
	}

	meter := gas.NewMeter(e.config.ComputeLimit)
	execErr := e.ctx.Atomic(func(bc types.BlockchainContext) error {
		for i, ix := range tx.Instructions {
			if err := e.runInstruction(bc, tx, ix, signed, meter); err != nil {
				return fmt.Errorf("instruction %d: %w", i, err)
			}
		}
		return nil
	})

	receipt := &Receipt{
		Hash:         hash,
		ComputeUsed:  meter.Used(),
		ComputeLimit: meter.Limit(),
		Err:          execErr,
	}
	rec := types.TxRecord{
		Hash:        hash,
		BlockHeight: e.ctx.BlockHeight(),
		FeePayer:    tx.FeePayer,
		ComputeUsed: receipt.ComputeUsed,
		Success:     execErr == nil,
	}
	if execErr != nil {
		rec.Error = execErr.Error()
		slog.Warn("Transaction failed", "tx", hash, "compute", receipt.ComputeUsed, "limit", receipt.ComputeLimit, "error", execErr)
	} else {
		slog.Debug("Transaction executed", "tx", hash, "compute", receipt.ComputeUsed, "limit", receipt.ComputeLimit)
	}
	if err := e.ctx.RecordTransaction(rec); err != nil {
		return receipt, fmt.Errorf("failed to record transaction: %w", err)
	}

	if execErr == nil {
		events, err := e.ctx.Events(hash)
		if err != nil {
			return receipt, fmt.Errorf("failed to load events: %w", err)
		}
		receipt.Events = events
	}
	return receipt, nil
}

func (e *Engine) runInstruction(bc types.BlockchainContext, tx *types.Transaction, ix types.Instruction, signed map[core.Address]bool, meter *gas.Meter) (err error) {
	p, err := e.Program(ix.Program)
	if err != nil {
		return err
	}
	if len(ix.Data) < core.DiscriminatorSize {
		return fmt.Errorf("%d bytes of data: %w", len(ix.Data), core.ErrInvalidInstruction)
	}
	var disc [core.DiscriminatorSize]byte
	copy(disc[:], ix.Data)
	handler, ok := p.Handlers()[disc]
	if !ok {
		return fmt.Errorf("%s has no instruction %x: %w", p.Name(), disc, core.ErrInvalidInstruction)
	}
	if err := meter.Consume(ComputeInstruction); err != nil {
		return err
	}

	accounts := make([]core.Address, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		accounts[i] = meta.Address
	}
	ctx := NewExecutionContext(bc, tx, ix, signed, meter)

	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("%w: %w", core.ErrExecutionReverted, rerr)
				return
			}
			err = fmt.Errorf("%w: %v", core.ErrExecutionReverted, r)
		}
	}()
	return handler(ctx, accounts, ix.Data[core.DiscriminatorSize:])
}

// Close closes the ledger
func (e *Engine) Close() error {
	if err := e.ctx.Close(); err != nil {
		return fmt.Errorf("failed to close context: %w", err)
	}
	return nil
}
