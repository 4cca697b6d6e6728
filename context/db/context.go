package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/govm-net/clicker/context"
	"github.com/govm-net/clicker/core"
	"github.com/govm-net/clicker/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultDBPath = "./clicker.db"
)

type DBBlock struct {
	gorm.Model
	Height uint64 `gorm:"column:height;not null;unique;index"`
	Time   int64  `gorm:"column:block_time;not null"`
	Hash   string `gorm:"column:block_hash;not null;index;size:64"`
}

func (DBBlock) TableName() string {
	return "blocks"
}

// DBAccount is a ledger account. System accounts have no data.
type DBAccount struct {
	gorm.Model
	Address  string `gorm:"column:address;not null;unique;index;size:64"`
	Owner    string `gorm:"column:owner_address;not null;index;size:64"`
	Lamports uint64 `gorm:"column:lamports;not null;default:0"`
	Space    int    `gorm:"column:space;not null;default:0"`
	Data     []byte `gorm:"column:data;type:blob"`
}

func (DBAccount) TableName() string {
	return "accounts"
}

// DBEvent represents an event in the database
type DBEvent struct {
	gorm.Model
	BlockHeight uint64 `gorm:"column:block_height;not null;index"`
	TxHash      string `gorm:"column:tx_hash;not null;index;size:64"`
	Contract    string `gorm:"column:contract_address;not null;index;size:64"`
	EventName   string `gorm:"column:event_name;not null;index;size:255"`
	KeyValues   []byte `gorm:"column:key_values;type:blob;not null"` // JSON encoded key-value pairs
}

func (DBEvent) TableName() string {
	return "events"
}

type DBTransaction struct {
	gorm.Model
	Hash        string `gorm:"column:tx_hash;not null;unique;index;size:64"`
	BlockHeight uint64 `gorm:"column:block_height;not null;index"`
	FeePayer    string `gorm:"column:fee_payer;not null;index;size:64"`
	ComputeUsed int64  `gorm:"column:compute_used;not null"`
	Success     bool   `gorm:"column:success;not null"`
	Error       string `gorm:"column:error"`
}

func (DBTransaction) TableName() string {
	return "transactions"
}

// shared is the state every view of one database has in common.
type shared struct {
	execMu sync.Mutex
	mu     sync.Mutex
	block  *DBBlock
}

// Context implements types.BlockchainContext on sqlite through gorm.
// Views handed to Atomic callbacks share the parent's block state.
type Context struct {
	db     *gorm.DB
	shared *shared
	root   bool
}

func init() {
	if err := context.Register(context.DBContextType, NewContext); err != nil {
		panic(err)
	}
}

// NewContext opens (creating if needed) the database at params["db_path"].
func NewContext(params map[string]any) (types.BlockchainContext, error) {
	dbPath := defaultDBPath
	if path, ok := params["db_path"].(string); ok && path != "" {
		dbPath = path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx := &Context{db: db, shared: &shared{}, root: true}
	if err := ctx.initDB(); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (c *Context) initDB() error {
	err := c.db.AutoMigrate(
		&DBBlock{},
		&DBAccount{},
		&DBEvent{},
		&DBTransaction{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (c *Context) withDB(db *gorm.DB) *Context {
	return &Context{db: db, shared: c.shared}
}

// SetBlockInfo records the block and makes it current.
func (c *Context) SetBlockInfo(height uint64, time int64, hash core.Hash) error {
	var block DBBlock
	result := c.db.Where(DBBlock{Height: height}).
		Assign(map[string]any{"block_time": time, "block_hash": hash.String()}).
		FirstOrCreate(&block)
	if result.Error != nil {
		return fmt.Errorf("failed to save block: %w", result.Error)
	}
	c.shared.mu.Lock()
	c.shared.block = &block
	c.shared.mu.Unlock()
	return nil
}

// currentBlock is the block set by SetBlockInfo, or the highest stored one.
func (c *Context) currentBlock() *DBBlock {
	c.shared.mu.Lock()
	block := c.shared.block
	c.shared.mu.Unlock()
	if block != nil {
		return block
	}
	var latest DBBlock
	if err := c.db.Order("height desc").First(&latest).Error; err != nil {
		return nil
	}
	return &latest
}

func (c *Context) BlockHeight() uint64 {
	if b := c.currentBlock(); b != nil {
		return b.Height
	}
	return 0
}

func (c *Context) BlockTime() int64 {
	if b := c.currentBlock(); b != nil {
		return b.Time
	}
	return 0
}

func (c *Context) findAccount(db *gorm.DB, addr core.Address) (*DBAccount, error) {
	var acc DBAccount
	result := db.Where("address = ?", addr.String()).First(&acc)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %s: %w", addr, core.ErrObjectNotFound)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return &acc, nil
}

func (c *Context) Balance(addr core.Address) uint64 {
	acc, err := c.findAccount(c.db, addr)
	if err != nil {
		if !errors.Is(err, core.ErrObjectNotFound) {
			slog.Error("Failed to read balance", "address", addr, "error", err)
		}
		return 0
	}
	return acc.Lamports
}

// credit adds amount to addr, creating a system account if needed.
func credit(tx *gorm.DB, addr core.Address, amount uint64) error {
	acc := DBAccount{
		Address: addr.String(),
		Owner:   core.SystemProgram.String(),
		Data:    []byte{},
	}
	if err := tx.Where("address = ?", acc.Address).FirstOrCreate(&acc).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if err := tx.Model(&DBAccount{}).Where("address = ?", acc.Address).
		Update("lamports", acc.Lamports+amount).Error; err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

// debit removes amount from addr.
func (c *Context) debit(tx *gorm.DB, addr core.Address, amount uint64) error {
	acc, err := c.findAccount(tx, addr)
	if errors.Is(err, core.ErrObjectNotFound) {
		return fmt.Errorf("debit %d from %s: %w", amount, addr, core.ErrInsufficientFunds)
	}
	if err != nil {
		return err
	}
	if acc.Lamports < amount {
		return fmt.Errorf("debit %d from %s: %w", amount, addr, core.ErrInsufficientFunds)
	}
	if err := tx.Model(&DBAccount{}).Where("address = ?", acc.Address).
		Update("lamports", acc.Lamports-amount).Error; err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	return nil
}

func (c *Context) Airdrop(addr core.Address, amount uint64) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		return credit(tx, addr, amount)
	})
}

func (c *Context) Transfer(from, to core.Address, amount uint64) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := c.debit(tx, from, amount); err != nil {
			return err
		}
		return credit(tx, to, amount)
	})
}

func (c *Context) CreateAccount(program, id, payer core.Address, space int, lamports uint64) (types.VMObject, error) {
	if space < 0 {
		return nil, fmt.Errorf("space %d: %w", space, core.ErrInvalidArgument)
	}
	err := c.db.Transaction(func(tx *gorm.DB) error {
		_, err := c.findAccount(tx, id)
		if err == nil {
			return fmt.Errorf("create account %s: %w", id, core.ErrAccountInUse)
		}
		if !errors.Is(err, core.ErrObjectNotFound) {
			return err
		}
		if err := c.debit(tx, payer, lamports); err != nil {
			return err
		}
		acc := &DBAccount{
			Address:  id.String(),
			Owner:    program.String(),
			Lamports: lamports,
			Space:    space,
			Data:     make([]byte, space),
		}
		if err := tx.Create(acc).Error; err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Object{ctx: c, id: id, owner: program}, nil
}

func (c *Context) GetAccount(id core.Address) (types.VMObject, error) {
	acc, err := c.findAccount(c.db, id)
	if err != nil {
		return nil, err
	}
	owner, err := core.AddressFromString(acc.Owner)
	if err != nil {
		return nil, fmt.Errorf("corrupt owner of %s: %w", id, err)
	}
	return &Object{ctx: c, id: id, owner: owner}, nil
}

func (c *Context) AccountsByOwner(program core.Address) ([]types.VMObject, error) {
	var rows []DBAccount
	if err := c.db.Where("owner_address = ?", program.String()).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	objs := make([]types.VMObject, 0, len(rows))
	for _, row := range rows {
		id, err := core.AddressFromString(row.Address)
		if err != nil {
			return nil, fmt.Errorf("corrupt account address %q: %w", row.Address, err)
		}
		objs = append(objs, &Object{ctx: c, id: id, owner: program})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].ID().Compare(objs[j].ID()) < 0 })
	return objs, nil
}

// Atomic runs fn inside one database transaction. The view passed to fn
// must be used for every read and write; it must not be nested.
func (c *Context) Atomic(fn func(types.BlockchainContext) error) error {
	c.shared.execMu.Lock()
	defer c.shared.execMu.Unlock()
	return c.db.Transaction(func(tx *gorm.DB) error {
		return fn(c.withDB(tx))
	})
}

// Log implements types.BlockchainContext
func (c *Context) Log(txHash core.Hash, contract core.Address, eventName string, keyValues ...any) {
	data, err := json.Marshal(keyValues)
	if err != nil {
		slog.Error("Failed to marshal event data", "error", err)
		return
	}

	height := c.BlockHeight()
	event := &DBEvent{
		BlockHeight: height,
		TxHash:      txHash.String(),
		Contract:    contract.String(),
		EventName:   eventName,
		KeyValues:   data,
	}
	if err := c.db.Create(event).Error; err != nil {
		slog.Error("Failed to save event", "error", err)
		return
	}

	params := []any{
		"block", height,
		"tx", txHash,
		"contract", contract,
		"event", eventName,
	}
	params = append(params, keyValues...)
	slog.Info("Contract event", params...)
}

// Events returns the events of a transaction in emission order. Values
// come back JSON decoded.
func (c *Context) Events(txHash core.Hash) ([]types.Event, error) {
	var rows []DBEvent
	if err := c.db.Where("tx_hash = ?", txHash.String()).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]types.Event, 0, len(rows))
	for _, row := range rows {
		contract, err := core.AddressFromString(row.Contract)
		if err != nil {
			return nil, fmt.Errorf("corrupt event contract: %w", err)
		}
		var kv []any
		if err := json.Unmarshal(row.KeyValues, &kv); err != nil {
			return nil, fmt.Errorf("corrupt event data: %w", err)
		}
		events = append(events, types.Event{
			BlockHeight: row.BlockHeight,
			TxHash:      txHash,
			Contract:    contract,
			Name:        row.EventName,
			KeyValues:   kv,
		})
	}
	return events, nil
}

func (c *Context) RecordTransaction(rec types.TxRecord) error {
	var count int64
	if err := c.db.Model(&DBTransaction{}).Where("tx_hash = ?", rec.Hash.String()).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up transaction: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("record %s: %w", rec.Hash, types.ErrDuplicateTransaction)
	}
	row := &DBTransaction{
		Hash:        rec.Hash.String(),
		BlockHeight: rec.BlockHeight,
		FeePayer:    rec.FeePayer.String(),
		ComputeUsed: rec.ComputeUsed,
		Success:     rec.Success,
		Error:       rec.Error,
	}
	if err := c.db.Create(row).Error; err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (c *Context) Transaction(hash core.Hash) (types.TxRecord, error) {
	var row DBTransaction
	result := c.db.Where("tx_hash = ?", hash.String()).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return types.TxRecord{}, fmt.Errorf("transaction %s: %w", hash, types.ErrTransactionNotFound)
	}
	if result.Error != nil {
		return types.TxRecord{}, fmt.Errorf("failed to get transaction: %w", result.Error)
	}
	payer, err := core.AddressFromString(row.FeePayer)
	if err != nil {
		return types.TxRecord{}, fmt.Errorf("corrupt fee payer: %w", err)
	}
	return types.TxRecord{
		Hash:        hash,
		BlockHeight: row.BlockHeight,
		FeePayer:    payer,
		ComputeUsed: row.ComputeUsed,
		Success:     row.Success,
		Error:       row.Error,
	}, nil
}

// Close releases the database; views returned to Atomic callbacks do nothing.
func (c *Context) Close() error {
	if !c.root {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Object implements types.VMObject; every read goes to the database.
type Object struct {
	ctx   *Context
	id    core.Address
	owner core.Address
}

func (o *Object) ID() core.Address {
	return o.id
}

func (o *Object) Owner() core.Address {
	return o.owner
}

func (o *Object) row() *DBAccount {
	acc, err := o.ctx.findAccount(o.ctx.db, o.id)
	if err != nil {
		slog.Error("Failed to load account", "address", o.id, "error", err)
		return &DBAccount{}
	}
	return acc
}

func (o *Object) Lamports() uint64 {
	return o.row().Lamports
}

func (o *Object) Space() int {
	return o.row().Space
}

func (o *Object) Data() []byte {
	return append([]byte(nil), o.row().Data...)
}

func (o *Object) SetData(data []byte) error {
	acc, err := o.ctx.findAccount(o.ctx.db, o.id)
	if err != nil {
		return err
	}
	if len(data) != acc.Space {
		return fmt.Errorf("set data %s: %d bytes into %d: %w", o.id, len(data), acc.Space, core.ErrInvalidDataLength)
	}
	result := o.ctx.db.Model(&DBAccount{}).Where("address = ?", acc.Address).Update("data", data)
	if result.Error != nil {
		return fmt.Errorf("failed to update data: %w", result.Error)
	}
	return nil
}
