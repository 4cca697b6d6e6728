package wallet

import (
	"bytes"
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/govm-net/clicker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSeedIsDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, ed25519.SeedSize)
	a, err := FromSeed(seed)
	require.NoError(t, err)
	b, err := FromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), b.Address())

	_, err = FromSeed([]byte{1, 2, 3})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSignVerifies(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	addr := kp.Address()
	sig := kp.Sign([]byte("hello"))
	assert.True(t, ed25519.Verify(ed25519.PublicKey(addr[:]), []byte("hello"), sig))
	assert.False(t, ed25519.Verify(ed25519.PublicKey(addr[:]), []byte("world"), sig))
}

func TestSaveLoad(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "id.json")
	require.NoError(t, kp.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), loaded.Address())
	assert.Equal(t, kp.Bytes(), loaded.Bytes())
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2,3]`), 0600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	// public half does not match the seed
	kp, err := Generate()
	require.NoError(t, err)
	secret := kp.Bytes()
	secret[63] ^= 0xff
	_, err = FromBytes(secret)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
