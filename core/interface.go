// Package core defines the interfaces a program uses to talk to the ledger.
// Program authors only need this package to write an instruction handler.
package core

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// Address is a 32-byte ed25519 public key. It names players, programs and
// the accounts programs store their records in.
type Address [32]byte

// Hash identifies a transaction or block.
type Hash [32]byte

var ZeroAddress = Address{}
var ZeroHash = Hash{}

// SystemProgram owns every account that has not been allocated to a program.
var SystemProgram = Address{}

func (addr Address) String() string {
	return base58.Encode(addr[:])
}

func (addr Address) IsZero() bool {
	return addr == ZeroAddress
}

// Compare orders addresses bytewise.
func (addr Address) Compare(other Address) int {
	return bytes.Compare(addr[:], other[:])
}

// MarshalText encodes the address as base58.
func (addr Address) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}

func (addr *Address) UnmarshalText(text []byte) error {
	a, err := AddressFromString(string(text))
	if err != nil {
		return err
	}
	*addr = a
	return nil
}

// AddressFromString decodes a base58 address.
func AddressFromString(str string) (Address, error) {
	raw, err := base58.Decode(str)
	if err != nil {
		return ZeroAddress, fmt.Errorf("decode address %q: %w", str, err)
	}
	if len(raw) != len(Address{}) {
		return ZeroAddress, fmt.Errorf("decode address %q: %w", str, ErrInvalidArgument)
	}
	return Address(raw), nil
}

// MustAddress is AddressFromString for constants.
func MustAddress(str string) Address {
	addr, err := AddressFromString(str)
	if err != nil {
		panic(err)
	}
	return addr
}

func (h Hash) String() string {
	return base58.Encode(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	v, err := HashFromString(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func HashFromString(str string) (Hash, error) {
	raw, err := base58.Decode(str)
	if err != nil {
		return ZeroHash, fmt.Errorf("decode hash %q: %w", str, err)
	}
	if len(raw) != len(Hash{}) {
		return ZeroHash, fmt.Errorf("decode hash %q: %w", str, ErrInvalidArgument)
	}
	return Hash(raw), nil
}

// Context is the view of the ledger a program gets while one instruction runs.
// Only the accounts listed by the instruction are reachable.
type Context interface {
	// Block information
	BlockHeight() uint64
	BlockTime() int64
	ContractAddress() Address // address of the running program
	TransactionHash() Hash

	// Signers
	IsSigner(addr Address) bool  // addr signed the transaction and is listed as signer
	Balance(addr Address) uint64 // lamports held by addr

	// Accounts
	CreateObject(id Address, payer Address, space int) (Object, error) // allocate a program-owned account
	GetObject(id Address) (Object, error)

	// Events
	Log(eventName string, keyValues ...any)
}

// Object is an account as seen from a program.
type Object interface {
	ID() Address
	Owner() Address // program that owns the account data
	Lamports() uint64
	Space() int
	Data() []byte
	SetData(data []byte) error // data length must equal Space
}

// Assert panics when condition is false or a non-nil error.
// The engine turns the panic back into a transaction error.
func Assert(condition any, msgs ...any) {
	switch v := condition.(type) {
	case bool:
		if !v {
			if len(msgs) > 0 {
				panic(fmt.Sprint(msgs...))
			}
			panic("assertion failed")
		}
	case error:
		if v != nil {
			panic(v)
		}
	}
}
