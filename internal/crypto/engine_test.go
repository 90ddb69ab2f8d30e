package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		key := bytes.Repeat([]byte{0x01}, size)
		plaintext := []byte("patch bytes for a detected face region")

		ct, nonce, err := Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("encrypt (key %d): %v", size, err)
		}
		if len(nonce) != NonceSize {
			t.Fatalf("expected %d-byte nonce, got %d", NonceSize, len(nonce))
		}
		if bytes.Contains(ct, plaintext) {
			t.Fatalf("ciphertext contains plaintext")
		}

		pt, err := Decrypt(ct, key, nonce)
		if err != nil {
			t.Fatalf("decrypt (key %d): %v", size, err)
		}
		if !bytes.Equal(pt, plaintext) {
			t.Fatalf("round trip mismatch")
		}
	}
}

func TestEncryptRejectsBadKeyLengths(t *testing.T) {
	for _, size := range []int{0, 8, 15, 17, 31, 33, 64} {
		key := bytes.Repeat([]byte{0x01}, size)
		if _, _, err := Encrypt([]byte("x"), key); !errors.Is(err, ErrKeyLength) {
			t.Fatalf("key size %d: expected ErrKeyLength, got %v", size, err)
		}
		if _, err := Decrypt([]byte("x"), key, make([]byte, NonceSize)); !errors.Is(err, ErrKeyLength) {
			t.Fatalf("key size %d: expected ErrKeyLength on decrypt, got %v", size, err)
		}
	}
}

func TestDecryptDetectsTampering(t *testing.T) {
	plaintext := []byte("sensitive patch")
	ct, nonce, err := Encrypt(plaintext, testKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	// Flip a single bit at every byte position; every variant must fail.
	for i := range ct {
		tampered := make([]byte, len(ct))
		copy(tampered, ct)
		tampered[i] ^= 0x01

		if _, err := Decrypt(tampered, testKey, nonce); !errors.Is(err, ErrAuthentication) {
			t.Fatalf("bit flip at %d: expected ErrAuthentication, got %v", i, err)
		}
	}
}

func TestDecryptRejectsWrongKeyAndNonce(t *testing.T) {
	ct, nonce, err := Encrypt([]byte("m"), testKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	wrongKey := bytes.Repeat([]byte{0x43}, 32)
	if _, err := Decrypt(ct, wrongKey, nonce); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("wrong key: expected ErrAuthentication, got %v", err)
	}

	wrongNonce := make([]byte, NonceSize)
	copy(wrongNonce, nonce)
	wrongNonce[0] ^= 0xff
	if _, err := Decrypt(ct, testKey, wrongNonce); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("wrong nonce: expected ErrAuthentication, got %v", err)
	}

	if _, err := Decrypt(ct, testKey, nonce[:8]); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("short nonce: expected ErrAuthentication, got %v", err)
	}
}

func TestNoncesAreUnique(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		_, nonce, err := Encrypt([]byte("m"), testKey)
		if err != nil {
			t.Fatalf("encrypt %d: %v", i, err)
		}
		k := string(nonce)
		if _, dup := seen[k]; dup {
			t.Fatalf("nonce collision after %d encryptions", i)
		}
		seen[k] = struct{}{}
	}
}

func TestDigestHex(t *testing.T) {
	// SHA-256("") is a fixed vector.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := DigestHex(nil); got != empty {
		t.Fatalf("empty digest: got %s", got)
	}
	if got := DigestHex([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("abc digest: got %s", got)
	}
	if len(DigestHex([]byte("x"))) != hex.EncodedLen(32) {
		t.Fatalf("digest not 64 hex chars")
	}
}
