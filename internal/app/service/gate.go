package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/app/security"
	"github.com/sifan077/DocLink/internal/infra/ratelimit"
	"go.uber.org/zap"
)

const (
	otpTTL          = 10 * time.Minute
	verificationTTL = 23 * time.Hour
	otpSendTimeout  = 30 * time.Second
)

// PasswordChecker compares a stored link password with a supplied one.
type PasswordChecker interface {
	Check(stored, supplied string) (bool, error)
}

// PreviewVerifier validates owner preview tokens for a subject.
type PreviewVerifier interface {
	Validate(subject, token string) error
}

// OTPSender delivers one-time codes.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string, isDataroom bool) error
}

// GateDeps wires the admission gate.
type GateDeps struct {
	Links     repository.LinkRepository
	Tokens    repository.VerificationTokenRepository
	Limiter   ratelimit.Limiter
	Passwords PasswordChecker
	Previews  PreviewVerifier
	OTP       OTPSender
	Logger    *zap.Logger
}

// Admission is the outcome of a request that passed every gate.
type Admission struct {
	Link *model.Link
	// VerificationSent is set when a one-time code was just issued. No view
	// must be recorded in that case.
	VerificationSent bool
	Verified         bool
	// VerificationToken is the long-lived token minted after a successful
	// one-time code check, as returned to the client.
	VerificationToken string
	IsPreview         bool
}

// Gate evaluates a link's access rules in a fixed order and stops at the
// first failure.
type Gate struct {
	links     repository.LinkRepository
	tokens    repository.VerificationTokenRepository
	limiter   ratelimit.Limiter
	passwords PasswordChecker
	previews  PreviewVerifier
	otp       OTPSender
	logger    *zap.Logger
	validate  *validator.Validate

	now     func() time.Time
	goAsync func(func())
}

func NewGate(deps GateDeps) *Gate {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		links:     deps.Links,
		tokens:    deps.Tokens,
		limiter:   deps.Limiter,
		passwords: deps.Passwords,
		previews:  deps.Previews,
		otp:       deps.OTP,
		logger:    logger,
		validate:  validator.New(),
		now:       time.Now,
		goAsync:   func(fn func()) { go fn() },
	}
}

// Admit runs the gates for req. Rejections are returned as *GateError; any
// other error is internal.
func (g *Gate) Admit(ctx context.Context, req ViewRequest) (*Admission, error) {
	link, err := g.links.GetByID(ctx, req.LinkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, errLinkNotFound
		}
		return nil, fmt.Errorf("load link: %w", err)
	}
	if link.IsArchived {
		return nil, errLinkArchived
	}

	email := strings.TrimSpace(req.Visitor.Email)

	if link.EmailProtected || link.EmailAuthenticated {
		if email == "" {
			return nil, errEmailRequired
		}
		if err := g.validate.Var(email, "required,email"); err != nil {
			return nil, errEmailInvalid
		}
	}

	if link.HasPassword() {
		if strings.TrimSpace(req.Visitor.Password) == "" {
			return nil, errPasswordRequired
		}
		ok, err := g.passwords.Check(*link.Password, req.Visitor.Password)
		if err != nil {
			g.logger.Warn("stored link password unreadable",
				zap.String("link_id", link.ID),
				zap.Error(err),
			)
			return nil, errPasswordInvalid
		}
		if !ok {
			return nil, errPasswordInvalid
		}
	}

	if link.EnableAgreement && !req.Visitor.HasConfirmedAgreement {
		return nil, errAgreementMissing
	}

	if len(link.AllowList) > 0 && !matchesList(link.AllowList, email) {
		return nil, errNotAllowed
	}
	if len(link.DenyList) > 0 && matchesList(link.DenyList, email) {
		return nil, errDenied
	}

	adm := &Admission{Link: link}

	if link.EmailAuthenticated {
		switch cred := req.Credential.(type) {
		case OTPVerification:
			if err := g.verifyOTP(ctx, req.Client.IP, link, email, cred.Code, adm); err != nil {
				return nil, err
			}
		case TokenVerification:
			if err := g.verifyToken(ctx, req.Client.IP, link, email, cred.Token); err != nil {
				return nil, err
			}
			adm.Verified = true
		default:
			if err := g.issueOTP(ctx, req.Client.IP, link, email); err != nil {
				return nil, err
			}
			adm.VerificationSent = true
			return adm, nil
		}
	}

	if req.PreviewToken != "" {
		if req.SessionUserID == "" {
			return nil, errLoginRequired
		}
		subject := security.PreviewSubject(req.SessionUserID, link.ID)
		if err := g.previews.Validate(subject, req.PreviewToken); err != nil {
			return nil, errPreviewInvalid
		}
		adm.IsPreview = true
	}

	return adm, nil
}

func (g *Gate) issueOTP(ctx context.Context, ip string, link *model.Link, email string) error {
	if err := g.allow(ctx, "send-otp:"+ip); err != nil {
		return err
	}

	identifier := model.OTPIdentifier(link.ID, email)
	if _, err := g.tokens.DeleteByIdentifier(ctx, identifier); err != nil {
		return fmt.Errorf("clear previous otp: %w", err)
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return err
	}
	if err := g.tokens.Create(ctx, &model.VerificationToken{
		Token:      otpTokenKey(identifier, code),
		Identifier: identifier,
		Expires:    g.now().Add(otpTTL),
	}); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	if g.otp != nil {
		isDataroom := link.LinkType == model.LinkTypeDataroom
		sendCtx := context.WithoutCancel(ctx)
		g.goAsync(func() {
			ctx, cancel := context.WithTimeout(sendCtx, otpSendTimeout)
			defer cancel()
			if err := g.otp.SendOTP(ctx, email, code, isDataroom); err != nil {
				g.logger.Error("failed to send otp email",
					zap.String("link_id", link.ID),
					zap.Error(err),
				)
			}
		})
	}
	return nil
}

func (g *Gate) verifyOTP(ctx context.Context, ip string, link *model.Link, email, code string, adm *Admission) error {
	if err := g.allow(ctx, "verify-otp:"+ip); err != nil {
		return err
	}

	identifier := model.OTPIdentifier(link.ID, email)
	key := otpTokenKey(identifier, code)
	if err := g.consume(ctx, key, identifier); err != nil {
		return err
	}
	if err := g.tokens.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}

	hashed := security.HashToken(security.NewVerificationToken())
	if err := g.tokens.Create(ctx, &model.VerificationToken{
		Token:      hashed,
		Identifier: model.LinkVerificationIdentifier(link.ID, link.TeamID, email),
		Expires:    g.now().Add(verificationTTL),
	}); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}

	adm.Verified = true
	adm.VerificationToken = hashed
	return nil
}

func (g *Gate) verifyToken(ctx context.Context, ip string, link *model.Link, email, token string) error {
	if err := g.allow(ctx, "verify-email:"+ip); err != nil {
		return err
	}
	return g.consume(ctx, token, model.LinkVerificationIdentifier(link.ID, link.TeamID, email))
}

// consume looks a token up and rejects unknown or expired ones. Expired
// tokens are deleted on the way out.
func (g *Gate) consume(ctx context.Context, token, identifier string) error {
	vt, err := g.tokens.Find(ctx, token, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return errVerificationUnknown
		}
		return fmt.Errorf("load verification token: %w", err)
	}
	if vt.Expired(g.now()) {
		if err := g.tokens.Delete(ctx, token); err != nil {
			g.logger.Warn("failed to delete expired token", zap.Error(err))
		}
		return errVerificationExpired
	}
	return nil
}

// allow applies the per-ip limiter. A failing limiter lets requests through.
func (g *Gate) allow(ctx context.Context, key string) error {
	if g.limiter == nil {
		return nil
	}
	res, err := g.limiter.Limit(ctx, key)
	if err != nil {
		g.logger.Warn("rate limiter unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}
	if !res.Allowed {
		return errRateLimited
	}
	return nil
}

// matchesList reports whether email matches an entry, either exactly or by
// an "@domain" entry. Comparison ignores case.
func matchesList(list []string, email string) bool {
	if email == "" {
		return false
	}
	email = strings.ToLower(email)
	domain := ""
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domain = email[at:]
	}
	for _, entry := range list {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == email {
			return true
		}
		if domain != "" && strings.HasPrefix(entry, "@") && entry == domain {
			return true
		}
	}
	return false
}

// otpTokenKey is the stored form of a one-time code. Codes are only six
// digits, so they are bound to their identifier before hashing to keep keys
// unique across links and recipients.
func otpTokenKey(identifier, code string) string {
	return security.HashToken(identifier + ":" + code)
}
