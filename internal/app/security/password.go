package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrMalformedPassword = errors.New("malformed encrypted password")

// PasswordChecker verifies visitor-supplied link passwords. Stored values are
// either "ivhex:cipherhex" (AES-256-CTR, reversible so owners can read them
// back) or a bcrypt hash.
type PasswordChecker struct {
	key []byte
}

// NewPasswordChecker derives the AES key as sha256(secret).
func NewPasswordChecker(secret string) *PasswordChecker {
	sum := sha256.Sum256([]byte(secret))
	return &PasswordChecker{key: sum[:]}
}

// Check reports whether supplied matches stored.
func (p *PasswordChecker) Check(stored, supplied string) (bool, error) {
	if strings.Contains(stored, ":") {
		plain, err := p.Decrypt(stored)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare([]byte(plain), []byte(supplied)) == 1, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password hash: %w", err)
	}
	return true, nil
}

// Encrypt produces the reversible "ivhex:cipherhex" form.
func (p *PasswordChecker) Encrypt(plain string) (string, error) {
	block, err := aes.NewCipher(p.key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	out := make([]byte, len(plain))
	cipher.NewCTR(block, iv).XORKeyStream(out, []byte(plain))
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (p *PasswordChecker) Decrypt(stored string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(stored, ":")
	if !ok {
		return "", ErrMalformedPassword
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformedPassword
	}
	data, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", ErrMalformedPassword
	}

	block, err := aes.NewCipher(p.key)
	if err != nil {
		return "", err
	}
	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return string(out), nil
}

// HashPassword returns a bcrypt hash suitable for Link.Password.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
