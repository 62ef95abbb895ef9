package service

import (
	"errors"
	"net/http"
)

// GateError is an expected, user-facing rejection. The HTTP layer renders it
// as {message, resetVerification?, resetPreview?} with Status.
type GateError struct {
	Status            int
	Message           string
	ResetVerification bool
	ResetPreview      bool
	// Reason is a stable label for metrics and logs.
	Reason string
}

func (e *GateError) Error() string {
	return e.Message
}

func newGateError(status int, reason, message string) *GateError {
	return &GateError{Status: status, Reason: reason, Message: message}
}

// AsGateError unwraps err into a *GateError when it is one.
func AsGateError(err error) (*GateError, bool) {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

var (
	errLinkNotFound     = newGateError(http.StatusNotFound, "link_not_found", "Link not found.")
	errLinkArchived     = newGateError(http.StatusNotFound, "link_archived", "Link is no longer available.")
	errEmailRequired    = newGateError(http.StatusBadRequest, "email_required", "Email is required.")
	errEmailInvalid     = newGateError(http.StatusBadRequest, "email_invalid", "Invalid email address.")
	errPasswordRequired = newGateError(http.StatusBadRequest, "password_required", "Password is required.")
	errPasswordInvalid  = newGateError(http.StatusForbidden, "password_invalid", "Invalid password.")
	errAgreementMissing = newGateError(http.StatusBadRequest, "agreement_required", "Agreement to NDA is required.")
	errNotAllowed       = newGateError(http.StatusForbidden, "allow_list", "Unauthorized access")
	errDenied           = newGateError(http.StatusForbidden, "deny_list", "Unauthorized access")
	errRateLimited      = newGateError(http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")
	errLoginRequired    = newGateError(http.StatusUnauthorized, "login_required", "You need to be logged in to preview the link.")
	errDocumentNotFound = newGateError(http.StatusNotFound, "document_not_found", "Document not found.")
	errVersionNotFound  = newGateError(http.StatusNotFound, "version_not_found", "Document version not found.")

	errVerificationUnknown = &GateError{
		Status:            http.StatusUnauthorized,
		Reason:            "verification_unknown",
		Message:           "Unauthorized access. Request new access.",
		ResetVerification: true,
	}
	errVerificationExpired = &GateError{
		Status:            http.StatusUnauthorized,
		Reason:            "verification_expired",
		Message:           "Access expired. Request new access.",
		ResetVerification: true,
	}
	errPreviewInvalid = &GateError{
		Status:       http.StatusUnauthorized,
		Reason:       "preview_invalid",
		Message:      "Preview session expired or invalid. Request a new one.",
		ResetPreview: true,
	}
)
