// Package crypto is the authenticated-encryption engine for region patches.
// It operates on opaque byte payloads and is the only package that may touch
// raw key material.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// NonceSize is the AES-GCM nonce length in bytes.
const NonceSize = 12

// ErrKeyLength is returned for keys that are not 16, 24, or 32 bytes.
var ErrKeyLength = errors.New("key must be 16/24/32 bytes")

// ErrAuthentication is returned when the GCM tag does not verify: tampered
// ciphertext, wrong key, or wrong nonce. It must surface loudly; decrypting
// never returns garbage plaintext.
var ErrAuthentication = errors.New("ciphertext authentication failed")

// Encrypt seals plaintext under key with a fresh random nonce and returns the
// ciphertext (tag included) and the nonce used. The nonce is stored alongside
// the region metadata, never inside the ciphertext blob.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("nonce generation: %w", err)
	}

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens ciphertext under key and nonce, verifying the tag.
func Decrypt(ciphertext, key, nonce []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrAuthentication, NonceSize, len(nonce))
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// DigestHex returns the SHA-256 digest of data as a 64-char hex string.
// Deterministic and side-effect free; used as the plaintext integrity anchor
// on Region rows.
func DigestHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
