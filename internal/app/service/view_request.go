package service

import (
	"strings"

	"github.com/sifan077/DocLink/internal/app/model"
)

// Credential is how a visitor proves control of their email on an
// email-authenticated link. Exactly one variant applies per request.
type Credential interface {
	credential()
}

// InitialAccess carries no proof yet; a one-time code gets issued.
type InitialAccess struct{}

// OTPVerification submits a one-time code received by email.
type OTPVerification struct {
	Code string
}

// TokenVerification replays a long-lived verification token from an earlier visit.
type TokenVerification struct {
	Token string
}

func (InitialAccess) credential()     {}
func (OTPVerification) credential()   {}
func (TokenVerification) credential() {}

// NewCredential selects the credential variant. A code wins over a token.
func NewCredential(code, token string) Credential {
	code = strings.TrimSpace(code)
	token = strings.TrimSpace(token)
	switch {
	case code != "":
		return OTPVerification{Code: code}
	case token != "":
		return TokenVerification{Token: token}
	default:
		return InitialAccess{}
	}
}

// Visitor is what the person opening the link told us about themselves.
type Visitor struct {
	Email                 string
	Name                  string
	Password              string
	HasConfirmedAgreement bool
	CustomFields          map[string]string
}

// ClientInfo describes the HTTP client behind a request.
type ClientInfo struct {
	IP        string
	UserAgent string
	Referer   string
	Location  model.Location
}

// ViewRequest is a validated POST /api/views call.
type ViewRequest struct {
	LinkID                 string
	DocumentID             string
	DocumentVersionID      string
	DocumentName           string
	HasPages               bool
	OwnerID                string
	UseAdvancedExcelViewer bool

	Visitor    Visitor
	Credential Credential
	// PreviewToken is an optional owner credential orthogonal to Credential.
	PreviewToken string
	// SessionUserID is the authenticated owner, if any.
	SessionUserID string

	Client ClientInfo
}
