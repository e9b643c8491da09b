package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/scrypt"
)

const saltSize = 32

var ErrDecrypt = errors.New("decryption failed (wrong passphrase or corrupted archive)")

func deriveKey(passphrase, salt []byte) ([]byte, error) {
	return scrypt.Key(passphrase, salt, 32768, 8, 1, 32)
}

// Seal encrypts plaintext under a passphrase-derived key. Layout of the
// result: salt | nonce | AES-256-GCM ciphertext.
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := append(salt, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Unseal reverses Seal. The GCM tag authenticates the payload, so a wrong
// passphrase and a corrupted archive are indistinguishable.
func Unseal(sealed, passphrase []byte) ([]byte, error) {
	if len(sealed) < saltSize {
		return nil, ErrDecrypt
	}
	salt, rest := sealed[:saltSize], sealed[saltSize:]

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(rest) < gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
