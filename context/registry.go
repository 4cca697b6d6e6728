// Package context keeps the named ledger implementations the engine can run on.
package context

import (
	"fmt"
	"sort"
	"sync"

	"github.com/govm-net/clicker/types"
)

// ContextType names a ledger implementation
type ContextType string

const (
	// MemoryContextType keeps all state in process memory
	MemoryContextType ContextType = "memory"
	// DBContextType persists state in a sqlite database
	DBContextType ContextType = "db"
)

// ContextConstructor builds a ledger from free-form parameters such as "db_path".
type ContextConstructor func(params map[string]any) (types.BlockchainContext, error)

// Registry defines the interface for managing BlockchainContext implementations
type Registry interface {
	Register(ct ContextType, constructor ContextConstructor) error
	SetDefault(ct ContextType) error
	Get(ct ContextType, params map[string]any) (types.BlockchainContext, error)
	DefaultContextType() ContextType
	ListRegistered() []ContextType
}

type registry struct {
	mu        sync.RWMutex
	contexts  map[ContextType]ContextConstructor
	defaultCt ContextType
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &registry{contexts: make(map[ContextType]ContextConstructor)}
}

// GetRegistry returns the global Registry instance
func GetRegistry() Registry {
	return defaultRegistry
}

func (r *registry) Register(ct ContextType, constructor ContextConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ct == "" || constructor == nil {
		return fmt.Errorf("context type and constructor are required")
	}
	if _, exists := r.contexts[ct]; exists {
		return fmt.Errorf("context type %s already registered", ct)
	}
	r.contexts[ct] = constructor
	return nil
}

func (r *registry) SetDefault(ct ContextType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contexts[ct]; !exists {
		return fmt.Errorf("context type %s not registered", ct)
	}
	r.defaultCt = ct
	return nil
}

// Get builds the named ledger, or the default one when ct is empty.
func (r *registry) Get(ct ContextType, params map[string]any) (types.BlockchainContext, error) {
	if ct == "" {
		ct = r.DefaultContextType()
	}
	r.mu.RLock()
	constructor, exists := r.contexts[ct]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("context type %s not found", ct)
	}
	ctx, err := constructor(params)
	if err != nil {
		return nil, fmt.Errorf("create %s context: %w", ct, err)
	}
	return ctx, nil
}

// DefaultContextType falls back to the db ledger when no default was set.
func (r *registry) DefaultContextType() ContextType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultCt == "" {
		return DBContextType
	}
	return r.defaultCt
}

func (r *registry) ListRegistered() []ContextType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]ContextType, 0, len(r.contexts))
	for ct := range r.contexts {
		list = append(list, ct)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Register adds a constructor to the global registry
func Register(ct ContextType, constructor ContextConstructor) error {
	return GetRegistry().Register(ct, constructor)
}

// SetDefault sets the default context type of the global registry
func SetDefault(ct ContextType) error {
	return GetRegistry().SetDefault(ct)
}

// Get builds a ledger from the global registry
func Get(ct ContextType, params map[string]any) (types.BlockchainContext, error) {
	return GetRegistry().Get(ct, params)
}

// ListRegistered lists the context types of the global registry
func ListRegistered() []ContextType {
	return GetRegistry().ListRegistered()
}
