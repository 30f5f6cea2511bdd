// Package crypto provides the password-derived cipher used by account files.
//
// Keys are stretched from the file password with PBKDF2-HMAC-SHA256 and a
// per-file random salt. The account body is encrypted with AES-128 in CBC
// mode under a per-file random IV, using PKCS#7 padding.
//
// # Security Features
//
//   - PBKDF2-HMAC-SHA256 key derivation (65536 iterations, 128-bit key)
//   - AES-CBC with PKCS#7 padding
//   - Fresh salt and IV from crypto/rand on every write
//   - Secure memory wiping for sensitive data
//
// # Example Usage
//
//	salt, _ := crypto.NewSalt()
//	iv, _ := crypto.NewIV()
//	key := crypto.DeriveKey([]byte("password"), salt)
//	defer crypto.SecureWipe(key)
//
//	ciphertext, err := crypto.Encrypt(key, iv, plaintext)
//	plaintext, err := crypto.Decrypt(key, iv, ciphertext)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation and cipher parameters.
const (
	// Iterations is the PBKDF2 iteration count.
	Iterations = 65536

	// KeyLength is the length of derived keys in bytes (128 bits).
	KeyLength = 16

	// SaltLength is the length of the per-file salt in bytes.
	SaltLength = 8

	// IVLength is the length of the CBC initialization vector (one AES block).
	IVLength = aes.BlockSize
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not KeyLength bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 16 bytes")

	// ErrInvalidIVLength indicates the IV is not one AES block.
	ErrInvalidIVLength = errors.New("crypto: invalid iv length, must be 16 bytes")

	// ErrDecryptionFailed indicates the ciphertext could not be decrypted or
	// its padding was invalid, usually because the password was wrong.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, bad padding or truncated ciphertext")
)

// DeriveKey derives a 128-bit key from a password and salt using
// PBKDF2-HMAC-SHA256 with Iterations rounds.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, Iterations, KeyLength, sha256.New)
}

// NewSalt returns SaltLength bytes of cryptographically secure random data.
func NewSalt() ([]byte, error) {
	return randomBytes(SaltLength, "salt")
}

// NewIV returns a fresh random initialization vector.
func NewIV() ([]byte, error) {
	return randomBytes(IVLength, "iv")
}

func randomBytes(n int, what string) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate %s: %w", what, err)
	}
	return b, nil
}

// Encrypt pads plaintext with PKCS#7 and encrypts it with AES-CBC.
//
// The caller owns the IV and must never reuse it with the same key for
// different content.
func Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	padded := pad(plaintext, aes.BlockSize)
	defer SecureWipe(padded)

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// Decrypt decrypts AES-CBC ciphertext and strips PKCS#7 padding.
//
// Ciphertext that is empty, not block aligned, or whose padding does not
// verify yields ErrDecryptionFailed.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrDecryptionFailed
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	n, ok := unpad(plaintext, aes.BlockSize)
	if !ok {
		SecureWipe(plaintext)
		return nil, ErrDecryptionFailed
	}
	return plaintext[:n], nil
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	if len(iv) != IVLength {
		return nil, ErrInvalidIVLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}
	return block, nil
}

// pad appends PKCS#7 padding. A full block is added when the input is
// already aligned.
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// unpad returns the unpadded length of b.
func unpad(b []byte, blockSize int) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return 0, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return 0, false
		}
	}
	return len(b) - n, true
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
