package types

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/govm-net/clicker/core"
)

var (
	// ErrDuplicateTransaction is returned when a transaction hash was already executed.
	ErrDuplicateTransaction = errors.New("transaction already processed")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

// AccountMeta lists an account an instruction touches and how.
type AccountMeta struct {
	Address    Address `json:"address"`
	IsSigner   bool    `json:"is_signer"`
	IsWritable bool    `json:"is_writable"`
}

// Instruction invokes one program handler. The first eight bytes of Data
// select the handler.
type Instruction struct {
	Program  Address       `json:"program"`
	Accounts []AccountMeta `json:"accounts"`
	Data     []byte        `json:"data"`
}

// Signer produces ed25519 signatures for its address.
type Signer interface {
	Address() Address
	Sign(message []byte) []byte
}

// Transaction is the unit of atomic execution.
type Transaction struct {
	FeePayer     Address            `json:"fee_payer"`
	Nonce        uint64             `json:"nonce"`
	Instructions []Instruction      `json:"instructions"`
	Signatures   map[Address][]byte `json:"signatures"`
}

// NewTransaction builds an unsigned transaction paid by feePayer.
func NewTransaction(feePayer Address, nonce uint64, instructions ...Instruction) *Transaction {
	return &Transaction{
		FeePayer:     feePayer,
		Nonce:        nonce,
		Instructions: instructions,
		Signatures:   make(map[Address][]byte),
	}
}

// Message is the byte string every signer signs.
func (tx *Transaction) Message() []byte {
	out := make([]byte, 0, 64+len(tx.Instructions)*128)
	out = append(out, tx.FeePayer[:]...)
	out = binary.LittleEndian.AppendUint64(out, tx.Nonce)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(tx.Instructions)))
	for _, ix := range tx.Instructions {
		out = append(out, ix.Program[:]...)
		out = binary.LittleEndian.AppendUint16(out, uint16(len(ix.Accounts)))
		for _, meta := range ix.Accounts {
			out = append(out, meta.Address[:]...)
			var flags byte
			if meta.IsSigner {
				flags |= 1
			}
			if meta.IsWritable {
				flags |= 2
			}
			out = append(out, flags)
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(ix.Data)))
		out = append(out, ix.Data...)
	}
	return out
}

// RequiredSigners returns the fee payer followed by every account an
// instruction marks as signer, without duplicates.
func (tx *Transaction) RequiredSigners() []Address {
	seen := map[Address]bool{tx.FeePayer: true}
	signers := []Address{tx.FeePayer}
	for _, ix := range tx.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !seen[meta.Address] {
				seen[meta.Address] = true
				signers = append(signers, meta.Address)
			}
		}
	}
	return signers
}

// Sign adds a signature for each signer.
func (tx *Transaction) Sign(signers ...Signer) *Transaction {
	if tx.Signatures == nil {
		tx.Signatures = make(map[Address][]byte)
	}
	msg := tx.Message()
	for _, s := range signers {
		tx.Signatures[s.Address()] = s.Sign(msg)
	}
	return tx
}

// Hash identifies the transaction: the hash of the fee payer signature,
// or of the message while unsigned.
func (tx *Transaction) Hash() Hash {
	if sig, ok := tx.Signatures[tx.FeePayer]; ok {
		return core.GetHash(sig)
	}
	return core.GetHash(tx.Message())
}

// VerifySignatures checks every attached signature and that all required
// signers signed. It returns the set of verified signers.
func (tx *Transaction) VerifySignatures() (map[Address]bool, error) {
	if len(tx.Instructions) == 0 {
		return nil, fmt.Errorf("empty transaction: %w", core.ErrInvalidArgument)
	}
	msg := tx.Message()
	verified := make(map[Address]bool, len(tx.Signatures))
	for addr, sig := range tx.Signatures {
		if !ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sig) {
			return nil, fmt.Errorf("signer %s: %w", addr, core.ErrInvalidSignature)
		}
		verified[addr] = true
	}
	for _, addr := range tx.RequiredSigners() {
		if !verified[addr] {
			return nil, fmt.Errorf("signer %s: %w", addr, core.ErrMissingSignature)
		}
	}
	return verified, nil
}
