package vm

import (
	"github.com/govm-net/clicker/core"
)

// Handler executes one instruction. accounts are the instruction's account
// list in order; args is the instruction data after the discriminator.
type Handler func(ctx core.Context, accounts []core.Address, args []byte) error

// Program is native code deployed at an address.
type Program interface {
	Address() core.Address
	Name() string
	// Handlers maps instruction discriminators to their handlers.
	Handlers() map[[core.DiscriminatorSize]byte]Handler
}

// Compute unit prices.
const (
	ComputeInstruction   int64 = 150
	ComputeAccountCreate int64 = 500
	ComputeAccountRead   int64 = 100
	ComputeAccountWrite  int64 = 200
	ComputeLog           int64 = 100

	DefaultComputeLimit int64 = 200_000
)
