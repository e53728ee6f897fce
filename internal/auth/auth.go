// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth stores the backend session token and answers the only
// question the rest of the app asks: is a session present?
//
// The token is sealed at rest with XChaCha20-Poly1305 under a key derived
// from a passphrase with Argon2id. The chat core never inspects the token
// beyond attaching it to requests.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeranaias/aide-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// sealMagic identifies the sealed token format.
const sealMagic = "AIDE1"

// SaltSize is the Argon2id salt length in bytes.
const SaltSize = 16

// Argon2id parameters per RFC 9106 second recommended option (64 MiB, one
// pass).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = chacha20poly1305.KeySize
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoSession indicates no token is stored.
	ErrNoSession = errors.New("no session: run 'aide setup' to sign in")
	// ErrBadPassphrase indicates the token could not be unsealed.
	ErrBadPassphrase = errors.New("could not unseal token: wrong passphrase or corrupted file")
	// ErrInvalidSeal indicates the sealed file is not in the expected format.
	ErrInvalidSeal = errors.New("invalid sealed token format")
)

// =============================================================================
// SEALING
// =============================================================================

// deriveKey stretches the passphrase into a cipher key.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// Seal encrypts the token under the passphrase. Output layout:
// magic | salt | nonce | ciphertext.
func Seal(token, passphrase string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+len(salt)+len(nonce)+len(token)+aead.Overhead())
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(token), nil)
	return out, nil
}

// Open decrypts a sealed token.
func Open(sealed []byte, passphrase string) (string, error) {
	minLen := len(sealMagic) + SaltSize + chacha20poly1305.NonceSizeX
	if len(sealed) < minLen || string(sealed[:len(sealMagic)]) != sealMagic {
		return "", ErrInvalidSeal
	}

	salt := sealed[len(sealMagic) : len(sealMagic)+SaltSize]
	nonce := sealed[len(sealMagic)+SaltSize : minLen]
	ciphertext := sealed[minLen:]

	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrBadPassphrase
	}
	return string(plain), nil
}

// zeroBytes clears key material.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// TOKEN STORE
// =============================================================================

// Store persists the sealed token on disk.
type Store struct {
	path string
}

// NewStore creates a store at the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore creates a store at ~/.aide/token.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	return NewStore(filepath.Join(home, ".aide", "token")), nil
}

// Save seals and writes the token.
// SECURITY: Written with 0600 permissions (owner read/write only).
func (s *Store) Save(token, passphrase string) error {
	sealed, err := Seal(token, passphrase)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// Load reads and unseals the token.
func (s *Store) Load(passphrase string) (string, error) {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return Open(sealed, passphrase)
}

// Clear removes the stored token, signing the user out.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// HasSession reports whether a token is stored. This is the only session
// signal the chat core observes.
func (s *Store) HasSession() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}
