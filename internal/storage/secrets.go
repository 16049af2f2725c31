package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	// secretMagicHeader is prepended to sealed files for identification.
	secretMagicHeader = "BLNDENC1"

	// tokenFileName holds the sealed Lichess API token in the data dir.
	tokenFileName = "token.enc"

	// Argon2 parameters (RFC 9106 recommendations).
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // KB
	argon2Threads = 4
	argon2KeyLen  = 32 // 256 bits for AES-256

	secretSaltLength = 32
)

// ErrNoToken reports that no token has been stored.
var ErrNoToken = errors.New("no stored token")

// deriveSecretKey derives an AES key from a passphrase with Argon2id.
func deriveSecretKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
}

// SealSecret encrypts plaintext with AES-256-GCM under a key derived
// from the passphrase. Output layout: salt || nonce || ciphertext,
// with the auth tag inside the ciphertext.
func SealSecret(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase required")
	}

	salt := make([]byte, secretSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveSecretKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// OpenSecret decrypts data produced by SealSecret.
func OpenSecret(sealed []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase required")
	}

	// Minimum size: salt + GCM nonce (12) + auth tag (16).
	if len(sealed) < secretSaltLength+12+16 {
		return nil, errors.New("sealed data too short")
	}

	salt := sealed[:secretSaltLength]
	rest := sealed[secretSaltLength:]

	block, err := aes.NewCipher(deriveSecretKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, errors.New("sealed data too short for nonce")
	}
	nonce := rest[:nonceSize]
	ciphertext := rest[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong passphrase or corrupted data): %w", err)
	}
	return plaintext, nil
}

func tokenPath(dir string) string {
	return filepath.Join(dir, tokenFileName)
}

// SaveToken seals the API token under the data directory. The file is
// written with owner-only permissions.
func SaveToken(dir, token, passphrase string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}

	sealed, err := SealSecret([]byte(token), passphrase)
	if err != nil {
		return err
	}

	payload := append([]byte(secretMagicHeader), sealed...)
	if err := os.WriteFile(tokenPath(dir), payload, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken opens the sealed API token from the data directory.
func LoadToken(dir, passphrase string) (string, error) {
	data, err := os.ReadFile(tokenPath(dir))
	if os.IsNotExist(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	if len(data) < len(secretMagicHeader) || string(data[:len(secretMagicHeader)]) != secretMagicHeader {
		return "", errors.New("token file is not in the sealed format")
	}

	plaintext, err := OpenSecret(data[len(secretMagicHeader):], passphrase)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// HasToken reports whether a sealed token file exists.
func HasToken(dir string) bool {
	_, err := os.Stat(tokenPath(dir))
	return err == nil
}

// DeleteToken removes the sealed token file if present.
func DeleteToken(dir string) error {
	err := os.Remove(tokenPath(dir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
