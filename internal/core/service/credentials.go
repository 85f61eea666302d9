package service

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes     = 16
	kdfIterations = 310_000
	kdfKeyLen     = 64
	resetTokenLen = 32
)

// HashPassword derives a PBKDF2-SHA512 key from plaintext with a random
// salt and returns "hex(salt):hex(key)".
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty password")
	}
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(plain), salt, kdfIterations, kdfKeyLen, sha512.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword recomputes the stored derivation and compares in constant
// time. Any malformed stored value verifies as false.
func VerifyPassword(plain, stored string) bool {
	saltHex, keyHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	storedKey, err := hex.DecodeString(keyHex)
	if err != nil || len(storedKey) == 0 {
		return false
	}
	key := pbkdf2.Key([]byte(plain), salt, kdfIterations, len(storedKey), sha512.New)
	return subtle.ConstantTimeCompare(key, storedKey) == 1
}

// GenerateResetToken returns an opaque high-entropy token (32 random
// bytes, hex encoded).
func GenerateResetToken() (string, error) {
	b := make([]byte, resetTokenLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
