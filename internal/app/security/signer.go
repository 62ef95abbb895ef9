package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("token secret is not configured")
)

// TokenSigner issues compact HMAC tokens bound to a subject string and a TTL.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner returns a signer that issues tokens valid for ttl.
func NewTokenSigner(secret []byte, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a token for subject and returns it with its expiry.
func (s *TokenSigner) Issue(subject string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}

	payload := make([]byte, 16) // 8 bytes expiry + 8 random bytes
	expires := s.now().Add(s.ttl).Truncate(time.Second)
	binary.BigEndian.PutUint64(payload[:8], uint64(expires.Unix()))
	if _, err := rand.Read(payload[8:]); err != nil {
		return "", time.Time{}, err
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	signature := s.sign(subject, payload)
	sigEnc := base64.RawURLEncoding.EncodeToString(signature)
	return fmt.Sprintf("%s.%s", payloadEnc, sigEnc), expires, nil
}

// Validate checks signature integrity and TTL of token for subject.
func (s *TokenSigner) Validate(subject, token string) error {
	if len(s.secret) == 0 {
		return ErrMissingSecret
	}

	payloadEnc, sigEnc, ok := strings.Cut(token, ".")
	if !ok {
		return ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadEnc)
	if err != nil || len(payload) != 16 {
		return ErrInvalidToken
	}

	sigProvided, err := base64.RawURLEncoding.DecodeString(sigEnc)
	if err != nil {
		return ErrInvalidToken
	}
	if !hmac.Equal(sigProvided, s.sign(subject, payload)) {
		return ErrInvalidToken
	}

	expires := int64(binary.BigEndian.Uint64(payload[:8]))
	if s.now().Unix() > expires {
		return ErrInvalidToken
	}

	return nil
}

func (s *TokenSigner) sign(subject string, payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(subject))
	mac.Write([]byte("|"))
	mac.Write(payload)
	return mac.Sum(nil)
}

// PreviewSubject binds a preview token to the owner and the link.
func PreviewSubject(userID, linkID string) string {
	return userID + "|" + linkID
}

// SignPayload returns the hex HMAC-SHA256 of body under secret. Used for
// outbound webhook signatures.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("%x", mac.Sum(nil))
}
