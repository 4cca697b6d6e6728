package core

import (
	"errors"
	"fmt"
)

// Errors raised by the ledger while a program runs.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAccountInUse        = errors.New("account already in use")
	ErrObjectNotFound      = errors.New("account not found")
	ErrAccountNotProvided  = errors.New("account not provided to instruction")
	ErrAccountNotWritable  = errors.New("account not writable")
	ErrMissingSignature    = errors.New("missing required signature")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidOwner        = errors.New("account owned by a different program")
	ErrInvalidDataLength   = errors.New("account data length mismatch")
	ErrInvalidInstruction  = errors.New("invalid instruction data")
	ErrAccountDiscriminant = errors.New("account discriminator mismatch")
	ErrContractNotFound    = errors.New("program not found")
	ErrOutOfGas            = errors.New("compute budget exceeded")
	ErrExecutionReverted   = errors.New("execution reverted")
)

// ProgramErrorOffset is the first code available to program defined errors.
const ProgramErrorOffset = 6000

// ProgramError is a failure defined by a program rather than by the ledger.
type ProgramError struct {
	Code uint32
	Name string
	Msg  string
}

func (e *ProgramError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("program error %d: %s", e.Code, e.Name)
	}
	return fmt.Sprintf("program error %d: %s: %s", e.Code, e.Name, e.Msg)
}

// Is matches program errors by code so wrapped copies compare equal.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewProgramError declares the n-th error of a program.
func NewProgramError(n uint32, name, msg string) *ProgramError {
	return &ProgramError{Code: ProgramErrorOffset + n, Name: name, Msg: msg}
}
