// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SEAL/OPEN TESTS
// =============================================================================

func TestSealOpen_RoundTrip(t *testing.T) {
	sealed, err := Seal("tok_abc123", "correct horse")
	require.NoError(t, err)

	token, err := Open(sealed, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "tok_abc123", token)
}

func TestOpen_WrongPassphrase(t *testing.T) {
	sealed, err := Seal("tok_abc123", "right")
	require.NoError(t, err)

	_, err = Open(sealed, "wrong")
	assert.ErrorIs(t, err, ErrBadPassphrase)
}

func TestOpen_TamperedCiphertext(t *testing.T) {
	sealed, err := Seal("tok_abc123", "pass")
	require.NoError(t, err)

	// Flip a bit in the ciphertext; the AEAD tag must catch it.
	sealed[len(sealed)-1] ^= 0x01
	_, err = Open(sealed, "pass")
	assert.ErrorIs(t, err, ErrBadPassphrase)
}

func TestOpen_InvalidFormat(t *testing.T) {
	_, err := Open([]byte("garbage"), "pass")
	assert.ErrorIs(t, err, ErrInvalidSeal)

	_, err = Open([]byte("WRONG"+string(make([]byte, 64))), "pass")
	assert.ErrorIs(t, err, ErrInvalidSeal)
}

func TestSeal_UniquePerCall(t *testing.T) {
	a, err := Seal("same token", "same pass")
	require.NoError(t, err)
	b, err := Seal("same token", "same pass")
	require.NoError(t, err)

	// Fresh salt and nonce every time.
	assert.NotEqual(t, a, b)
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store := NewStore(path)

	assert.False(t, store.HasSession())
	_, err := store.Load("pass")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save("tok_xyz", "pass"))
	assert.True(t, store.HasSession())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, err := store.Load("pass")
	require.NoError(t, err)
	assert.Equal(t, "tok_xyz", token)

	require.NoError(t, store.Clear())
	assert.False(t, store.HasSession())
	_, err = store.Load("pass")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "token"))
	assert.NoError(t, store.Clear())
	assert.NoError(t, store.Clear())
}
