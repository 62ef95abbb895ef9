package model

import (
	"fmt"
	"time"
)

// VerificationToken stores both short-lived OTP codes and long-lived email
// verification tokens. Identifier encodes purpose, link and email.
type VerificationToken struct {
	Token      string    `gorm:"primaryKey;size:128" json:"-"`
	Identifier string    `gorm:"size:512;index;not null" json:"identifier"`
	Expires    time.Time `gorm:"index;not null" json:"expires"`
}

// Expired reports whether the token is past its expiry at now.
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.Expires)
}

// OTPIdentifier is the identifier of a one-time code issued for (link, email).
func OTPIdentifier(linkID, email string) string {
	return fmt.Sprintf("otp:%s:%s", linkID, email)
}

// LinkVerificationIdentifier is the identifier of a long-lived verification token.
func LinkVerificationIdentifier(linkID, teamID, email string) string {
	return fmt.Sprintf("link-verification:%s:%s:%s", linkID, teamID, email)
}
