package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes  = 16
	keyBytes   = 32
	iterations = 100_000
)

// error if the OS randomness source cannot be read
var ErrCryptoUnavailable = errors.New("crypto primitives unavailable")

// GenerateSalt returns a fresh hex-encoded random salt, unique per call.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}

	return hex.EncodeToString(buf), nil
}

// HashPassword derives a hex-encoded PBKDF2-SHA256 digest. The same
// (salt, plaintext) pair always produces the same digest.
func HashPassword(salt, plain string) string {
	key := pbkdf2.Key([]byte(plain), []byte(salt), iterations, keyBytes, sha256.New)

	return hex.EncodeToString(key)
}

// CheckPassword re-derives the digest and compares in constant time.
func CheckPassword(salt, plain, digest string) bool {
	derived := HashPassword(salt, plain)

	return subtle.ConstantTimeCompare([]byte(derived), []byte(digest)) == 1
}
