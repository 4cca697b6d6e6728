package gas

import (
	"fmt"
	"sync"

	"github.com/govm-net/clicker/core"
)

// Meter tracks compute units spent against a fixed limit.
type Meter struct {
	mu    sync.RWMutex
	limit int64
	used  int64
}

// NewMeter returns a meter with limit units available.
func NewMeter(limit int64) *Meter {
	return &Meter{limit: limit}
}

// Remaining returns the units still available.
func (m *Meter) Remaining() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limit - m.used
}

// Used returns the units consumed so far.
func (m *Meter) Used() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used
}

func (m *Meter) Limit() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limit
}

// Consume spends amount units. When fewer remain, everything left is
// spent and core.ErrOutOfGas is returned.
func (m *Meter) Consume(amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount <= 0 {
		return nil
	}

	if m.limit-m.used < amount {
		need := amount
		m.used = m.limit
		return fmt.Errorf("limit=%d, need=%d: %w", m.limit, need, core.ErrOutOfGas)
	}

	m.used += amount
	return nil
}
