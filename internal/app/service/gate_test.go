package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errInvalidPreviewForTest = errors.New("invalid preview")

type gateFixture struct {
	gate    *Gate
	tokens  *memTokenRepository
	limiter *fakeLimiter
	otp     *fakeOTPSender
	now     time.Time
}

func newGateFixture(t *testing.T, link *model.Link) *gateFixture {
	t.Helper()
	f := &gateFixture{
		tokens:  newMemTokenRepository(),
		limiter: &fakeLimiter{allowed: true},
		otp:     &fakeOTPSender{},
		now:     time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	f.gate = NewGate(GateDeps{
		Links:     staticLinks(link),
		Tokens:    f.tokens,
		Limiter:   f.limiter,
		Passwords: fakePasswords{want: "secret"},
		Previews: fakePreviews{valid: map[string]string{
			security.PreviewSubject("user_1", link.ID): "preview-ok",
		}},
		OTP: f.otp,
	})
	f.gate.now = func() time.Time { return f.now }
	f.gate.goAsync = func(fn func()) { fn() }
	return f
}

func strPtr(s string) *string { return &s }

func requireGateError(t *testing.T, err error, status int) *GateError {
	t.Helper()
	require.Error(t, err)
	ge, ok := AsGateError(err)
	require.True(t, ok, "expected GateError, got %v", err)
	assert.Equal(t, status, ge.Status)
	return ge
}

func baseLink() *model.Link {
	return &model.Link{ID: "link_1", TeamID: "team_1", Team: &model.Team{ID: "team_1", Plan: "pro"}}
}

func TestGate_LinkMissingOrArchived(t *testing.T) {
	link := baseLink()
	f := newGateFixture(t, link)

	_, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: "nope"})
	ge := requireGateError(t, err, http.StatusNotFound)
	assert.Equal(t, "Link not found.", ge.Message)

	link.IsArchived = true
	f = newGateFixture(t, link)
	_, err = f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID})
	ge = requireGateError(t, err, http.StatusNotFound)
	assert.Equal(t, "Link is no longer available.", ge.Message)
}

func TestGate_EmailCheckedBeforePassword(t *testing.T) {
	link := baseLink()
	link.EmailProtected = true
	link.Password = strPtr("stored")
	link.EnableAgreement = true
	f := newGateFixture(t, link)

	_, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID})
	ge := requireGateError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Email is required.", ge.Message)

	_, err = f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "not-an-email"}})
	ge = requireGateError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Invalid email address.", ge.Message)
}

func TestGate_EmailAuthenticatedImpliesEmail(t *testing.T) {
	link := baseLink()
	link.EmailAuthenticated = true
	f := newGateFixture(t, link)

	_, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID})
	requireGateError(t, err, http.StatusBadRequest)
}

func TestGate_Password(t *testing.T) {
	link := baseLink()
	link.Password = strPtr("stored")
	f := newGateFixture(t, link)
	ctx := context.Background()

	_, err := f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, Visitor: Visitor{Password: "  "}})
	ge := requireGateError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Password is required.", ge.Message)

	_, err = f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, Visitor: Visitor{Password: "wrong"}})
	ge = requireGateError(t, err, http.StatusForbidden)
	assert.Equal(t, "Invalid password.", ge.Message)

	adm, err := f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, Visitor: Visitor{Password: "secret"}})
	require.NoError(t, err)
	assert.False(t, adm.IsPreview)
}

func TestGate_PasswordFormats(t *testing.T) {
	checker := security.NewPasswordChecker("doc-key")
	encrypted, err := checker.Encrypt("open-sesame")
	require.NoError(t, err)
	hashed, err := security.HashPassword("open-sesame")
	require.NoError(t, err)

	for name, stored := range map[string]string{"encrypted": encrypted, "hashed": hashed} {
		t.Run(name, func(t *testing.T) {
			link := baseLink()
			link.Password = strPtr(stored)
			f := newGateFixture(t, link)
			f.gate.passwords = checker

			_, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID, Visitor: Visitor{Password: "open-sesame"}})
			require.NoError(t, err)

			_, err = f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID, Visitor: Visitor{Password: "open-sesame!"}})
			requireGateError(t, err, http.StatusForbidden)
		})
	}
}

func TestGate_Agreement(t *testing.T) {
	link := baseLink()
	link.EnableAgreement = true
	f := newGateFixture(t, link)

	_, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID})
	ge := requireGateError(t, err, http.StatusBadRequest)
	assert.Equal(t, "Agreement to NDA is required.", ge.Message)

	_, err = f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID, Visitor: Visitor{HasConfirmedAgreement: true}})
	require.NoError(t, err)
}

func TestGate_AllowAndDenyLists(t *testing.T) {
	link := baseLink()
	link.EmailProtected = true
	link.AllowList = []string{"@acme.com"}
	link.DenyList = []string{"bad@acme.com"}
	f := newGateFixture(t, link)
	ctx := context.Background()

	_, err := f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "user@acme.com"}})
	require.NoError(t, err)

	_, err = f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "User@ACME.com"}})
	require.NoError(t, err)

	_, err = f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "user@other.com"}})
	requireGateError(t, err, http.StatusForbidden)

	_, err = f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "bad@acme.com"}})
	requireGateError(t, err, http.StatusForbidden)
}

func TestGate_AllowListWithoutEmail(t *testing.T) {
	link := baseLink()
	link.AllowList = []string{"a@b.com"}
	f := newGateFixture(t, link)

	_, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID})
	requireGateError(t, err, http.StatusForbidden)
}

func TestMatchesList(t *testing.T) {
	assert.True(t, matchesList([]string{"a@b.com"}, "a@b.com"))
	assert.True(t, matchesList([]string{"@b.com"}, "x@b.com"))
	assert.False(t, matchesList([]string{"@b.com"}, "x@sub.b.com"))
	assert.False(t, matchesList([]string{"b.com"}, "x@b.com"))
	assert.False(t, matchesList([]string{"a@b.com"}, ""))
}

func TestGate_OTPRoundTrip(t *testing.T) {
	link := baseLink()
	link.EmailAuthenticated = true
	f := newGateFixture(t, link)
	ctx := context.Background()
	email := "visitor@acme.com"
	req := ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: email}, Client: ClientInfo{IP: "1.2.3.4"}}

	// First request issues a code.
	req.Credential = NewCredential("", "")
	adm, err := f.gate.Admit(ctx, req)
	require.NoError(t, err)
	assert.True(t, adm.VerificationSent)
	first := f.otp.last()
	assert.Equal(t, email, first.email)
	assert.Regexp(t, `^\d{6}$`, first.code)

	// A second issue replaces the first code.
	_, err = f.gate.Admit(ctx, req)
	require.NoError(t, err)
	second := f.otp.last()
	assert.Len(t, f.tokens.byIdentifier(model.OTPIdentifier(link.ID, email)), 1)

	if first.code != second.code {
		req.Credential = NewCredential(first.code, "")
		_, err = f.gate.Admit(ctx, req)
		ge := requireGateError(t, err, http.StatusUnauthorized)
		assert.True(t, ge.ResetVerification)
	}

	// The current code works once and mints a long-lived token.
	req.Credential = NewCredential(second.code, "")
	adm, err = f.gate.Admit(ctx, req)
	require.NoError(t, err)
	assert.True(t, adm.Verified)
	assert.False(t, adm.VerificationSent)
	require.Len(t, adm.VerificationToken, 64)
	assert.Empty(t, f.tokens.byIdentifier(model.OTPIdentifier(link.ID, email)))

	_, err = f.gate.Admit(ctx, req)
	ge := requireGateError(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Unauthorized access. Request new access.", ge.Message)

	// The long-lived token is valid for 23 hours.
	req.Credential = NewCredential("", adm.VerificationToken)
	f.now = f.now.Add(22 * time.Hour)
	adm2, err := f.gate.Admit(ctx, req)
	require.NoError(t, err)
	assert.True(t, adm2.Verified)
	assert.Empty(t, adm2.VerificationToken)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.gate.Admit(ctx, req)
	ge = requireGateError(t, err, http.StatusUnauthorized)
	assert.True(t, ge.ResetVerification)
	assert.Equal(t, "Access expired. Request new access.", ge.Message)

	assert.Contains(t, f.limiter.keys, "send-otp:1.2.3.4")
	assert.Contains(t, f.limiter.keys, "verify-otp:1.2.3.4")
	assert.Contains(t, f.limiter.keys, "verify-email:1.2.3.4")
}

func TestGate_OTPExpired(t *testing.T) {
	link := baseLink()
	link.EmailAuthenticated = true
	f := newGateFixture(t, link)
	ctx := context.Background()
	req := ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "v@acme.com"}, Credential: InitialAccess{}}

	_, err := f.gate.Admit(ctx, req)
	require.NoError(t, err)
	code := f.otp.last().code

	f.now = f.now.Add(11 * time.Minute)
	req.Credential = OTPVerification{Code: code}
	_, err = f.gate.Admit(ctx, req)
	ge := requireGateError(t, err, http.StatusUnauthorized)
	assert.True(t, ge.ResetVerification)
	assert.Equal(t, "Access expired. Request new access.", ge.Message)
	assert.Empty(t, f.tokens.byIdentifier(model.OTPIdentifier(link.ID, "v@acme.com")))
}

func TestGate_CodeIgnoredWithoutEmailAuthentication(t *testing.T) {
	link := baseLink()
	f := newGateFixture(t, link)

	adm, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID, Credential: OTPVerification{Code: "000000"}})
	require.NoError(t, err)
	assert.False(t, adm.Verified)
	assert.Empty(t, f.limiter.keys)
}

func TestGate_RateLimited(t *testing.T) {
	link := baseLink()
	link.EmailAuthenticated = true
	f := newGateFixture(t, link)
	f.limiter.allowed = false

	_, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "v@acme.com"}, Credential: InitialAccess{}})
	ge := requireGateError(t, err, http.StatusTooManyRequests)
	assert.Equal(t, "Too many requests. Please try again later.", ge.Message)
	assert.Empty(t, f.otp.sent)
}

func TestGate_LimiterFailureFailsOpen(t *testing.T) {
	link := baseLink()
	link.EmailAuthenticated = true
	f := newGateFixture(t, link)
	f.limiter.err = errors.New("redis down")

	adm, err := f.gate.Admit(context.Background(), ViewRequest{LinkID: link.ID, Visitor: Visitor{Email: "v@acme.com"}, Credential: InitialAccess{}})
	require.NoError(t, err)
	assert.True(t, adm.VerificationSent)
}

func TestGate_Preview(t *testing.T) {
	link := baseLink()
	f := newGateFixture(t, link)
	ctx := context.Background()

	_, err := f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, PreviewToken: "preview-ok"})
	ge := requireGateError(t, err, http.StatusUnauthorized)
	assert.False(t, ge.ResetPreview)

	_, err = f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, PreviewToken: "stale", SessionUserID: "user_1"})
	ge = requireGateError(t, err, http.StatusUnauthorized)
	assert.True(t, ge.ResetPreview)

	_, err = f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, PreviewToken: "preview-ok", SessionUserID: "user_2"})
	requireGateError(t, err, http.StatusUnauthorized)

	adm, err := f.gate.Admit(ctx, ViewRequest{LinkID: link.ID, PreviewToken: "preview-ok", SessionUserID: "user_1"})
	require.NoError(t, err)
	assert.True(t, adm.IsPreview)
}

func TestNewCredential(t *testing.T) {
	assert.Equal(t, InitialAccess{}, NewCredential("", " "))
	assert.Equal(t, OTPVerification{Code: "123456"}, NewCredential("123456", "tok"))
	assert.Equal(t, TokenVerification{Token: "tok"}, NewCredential("", "tok"))
}
