package crypto_test

import (
	"crypto/rand"
	"testing"

	"github.com/forest6511/acctvault/pkg/crypto"
)

// BenchmarkDeriveKey measures PBKDF2 key derivation at the file iteration count.
func BenchmarkDeriveKey(b *testing.B) {
	password := []byte("testpassword123!")
	salt, err := crypto.NewSalt()
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		crypto.DeriveKey(password, salt)
	}
}

// BenchmarkEncrypt measures AES-CBC encryption with a 1KB payload.
func BenchmarkEncrypt(b *testing.B) {
	key := make([]byte, crypto.KeyLength)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}
	iv, err := crypto.NewIV()
	if err != nil {
		b.Fatal(err)
	}
	data := make([]byte, 1024)
	if _, err := rand.Read(data); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := crypto.Encrypt(key, iv, data); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecrypt measures AES-CBC decryption with a 1KB payload.
func BenchmarkDecrypt(b *testing.B) {
	key := make([]byte, crypto.KeyLength)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}
	iv, err := crypto.NewIV()
	if err != nil {
		b.Fatal(err)
	}
	data := make([]byte, 1024)
	if _, err := rand.Read(data); err != nil {
		b.Fatal(err)
	}
	ciphertext, err := crypto.Encrypt(key, iv, data)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := crypto.Decrypt(key, iv, ciphertext); err != nil {
			b.Fatal(err)
		}
	}
}
