package core

import (
	"crypto/sha256"
)

// DiscriminatorSize is the length of account and instruction tags.
const DiscriminatorSize = 8

// GetHash calculates the SHA-256 hash of data
func GetHash(data []byte) Hash {
	return sha256.Sum256(data)
}

// Discriminator tags account layouts ("account", "Game") and
// instructions ("global", "click"): sha256("namespace:name")[:8].
func Discriminator(namespace, name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var disc [DiscriminatorSize]byte
	copy(disc[:], sum[:DiscriminatorSize])
	return disc
}

// InstructionDiscriminator is Discriminator("global", name).
func InstructionDiscriminator(name string) [DiscriminatorSize]byte {
	return Discriminator("global", name)
}

// AccountDiscriminator is Discriminator("account", name).
func AccountDiscriminator(name string) [DiscriminatorSize]byte {
	return Discriminator("account", name)
}
