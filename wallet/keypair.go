// Package wallet manages ed25519 keypairs for players and accounts.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/govm-net/clicker/core"
)

// Keypair holds an ed25519 private key.
type Keypair struct {
	key ed25519.PrivateKey
}

// Generate creates a random keypair.
func Generate() (*Keypair, error) {
	return GenerateFrom(rand.Reader)
}

// GenerateFrom creates a keypair from the given entropy source.
func GenerateFrom(r io.Reader) (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{key: priv}, nil
}

// FromSeed derives the keypair for a 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed length %d: %w", len(seed), core.ErrInvalidArgument)
	}
	return &Keypair{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// FromBytes accepts the 64-byte secret key layout (seed followed by public key).
func FromBytes(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("secret key length %d: %w", len(secret), core.ErrInvalidArgument)
	}
	kp, err := FromSeed(secret[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	pub := kp.key.Public().(ed25519.PublicKey)
	if string(pub) != string(secret[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("public key does not match seed: %w", core.ErrInvalidArgument)
	}
	return kp, nil
}

// Address is the public key.
func (k *Keypair) Address() core.Address {
	var addr core.Address
	copy(addr[:], k.key.Public().(ed25519.PublicKey))
	return addr
}

// Sign signs message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.key, message)
}

// Bytes returns the 64-byte secret key.
func (k *Keypair) Bytes() []byte {
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out
}

// Load reads a keypair file: a JSON array of the 64 secret key bytes.
func Load(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("decode keypair %s: %w", path, err)
	}
	secret := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("decode keypair %s: byte %d out of range: %w", path, i, core.ErrInvalidArgument)
		}
		secret[i] = byte(v)
	}
	return FromBytes(secret)
}

// Save writes the keypair in the format Load reads, readable by the owner only.
func (k *Keypair) Save(path string) error {
	ints := make([]int, len(k.key))
	for i, b := range k.key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("encode keypair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create keypair directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write keypair: %w", err)
	}
	return nil
}
