package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. Changing them invalidates every stored credential.
const (
	scryptN = 16384
	scryptR = 8
	scryptP = 1

	saltBytes = 16
	keyBytes  = 64

	credentialSep = ":"
)

// HashPassword derives a storable credential of the form "salt_hex:key_hex".
// The hex-encoded salt string itself is fed to scrypt as the salt.
func HashPassword(plain string) (string, error) {
	raw := make([]byte, saltBytes)

	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	salt := hex.EncodeToString(raw)

	key, err := scrypt.Key([]byte(plain), []byte(salt), scryptN, scryptR, scryptP, keyBytes)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return salt + credentialSep + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether plain matches the stored credential.
// Malformed credentials never match.
func VerifyPassword(plain, credential string) bool {
	salt, hashed, ok := strings.Cut(credential, credentialSep)
	if !ok || salt == "" || hashed == "" {
		return false
	}

	stored, err := hex.DecodeString(hashed)
	if err != nil || len(stored) == 0 {
		return false
	}

	derived, err := scrypt.Key([]byte(plain), []byte(salt), scryptN, scryptR, scryptP, len(stored))
	if err != nil {
		return false
	}

	if len(derived) != len(stored) {
		return false
	}

	return subtle.ConstantTimeCompare(derived, stored) == 1
}
