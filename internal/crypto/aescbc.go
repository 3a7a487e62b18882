package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// BlockSize is the AES block size; the container body and every key search
// probe operate on 16-byte units.
const BlockSize = 16

// ErrBlockAlignment reports input whose length is not a multiple of BlockSize.
var ErrBlockAlignment = errors.New("crypto: data not block aligned")

// Material is an AES-128 key and CBC IV pair. Voice packs share one static
// pair across every file; it is either known up front or recovered from a
// firmware dump by the key search. Always passed explicitly, never held in
// package state, so tests and recovered keys use the same code path.
type Material struct {
	Key [16]byte
	IV  [16]byte
}

// MaterialFromStrings builds a Material from two 16-character ASCII strings,
// the form key and IV take inside the firmware image.
func MaterialFromStrings(key, iv string) (Material, error) {
	return MaterialFromBytes([]byte(key), []byte(iv))
}

// MaterialFromBytes builds a Material from two 16-byte slices.
func MaterialFromBytes(key, iv []byte) (Material, error) {
	var m Material
	if len(key) != len(m.Key) {
		return m, fmt.Errorf("crypto: key must be %d bytes, got %d", len(m.Key), len(key))
	}
	if len(iv) != len(m.IV) {
		return m, fmt.Errorf("crypto: iv must be %d bytes, got %d", len(m.IV), len(iv))
	}
	copy(m.Key[:], key)
	copy(m.IV[:], iv)
	return m, nil
}

// DecryptCBC decrypts data with AES-128-CBC and no padding scheme: trailing
// compressed-stream padding stays in the output and is ignored by the
// decompressor's own length tracking. The key material here is static and
// public, so this is deliberately not a hardened primitive.
func DecryptCBC(data []byte, m Material) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockAlignment, len(data))
	}
	block, err := aes.NewCipher(m.Key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, m.IV[:]).CryptBlocks(out, data)
	return out, nil
}

// EncryptCBC is the inverse of DecryptCBC, used to build synthetic containers.
func EncryptCBC(data []byte, m Material) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockAlignment, len(data))
	}
	block, err := aes.NewCipher(m.Key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: %w", err)
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, m.IV[:]).CryptBlocks(out, data)
	return out, nil
}
