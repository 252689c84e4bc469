package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000
)

// GenerateSalt generates a random salt
func GenerateSalt() (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// HashPassword hashes a password with a salt using PBKDF2
func HashPassword(password, salt string) string {
	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return ""
	}
	hash := pbkdf2.Key([]byte(password), saltBytes, iterations, keySize, sha256.New)
	return base64.StdEncoding.EncodeToString(hash)
}

// VerifyPassword verifies a password against a hash using constant-time comparison
func VerifyPassword(password, salt, hash string) bool {
	computedHash := HashPassword(password, salt)
	if computedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computedHash), []byte(hash)) == 1
}

// RandomHex returns n random bytes, hex encoded
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Credential is the single admin login. The password is held only as a
// salted PBKDF2 hash.
type Credential struct {
	username string
	salt     string
	hash     string
}

// NewCredential hashes password for later verification.
func NewCredential(username, password string) (*Credential, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	return &Credential{
		username: username,
		salt:     salt,
		hash:     HashPassword(password, salt),
	}, nil
}

// Verify checks both fields without short-circuiting on the username.
func (c *Credential) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := VerifyPassword(password, c.salt, c.hash)
	return userOK && passOK
}
