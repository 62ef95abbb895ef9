package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/infra/mail"
	"go.uber.org/zap"
)

// ErrNoTeamAdmin is returned when a team has nobody to notify.
var ErrNoTeamAdmin = errors.New("team has no admin")

// OTPMailer emails one-time codes to visitors.
type OTPMailer struct {
	mailer mail.Mailer
	from   string
}

func NewOTPMailer(mailer mail.Mailer, from string) *OTPMailer {
	return &OTPMailer{mailer: mailer, from: from}
}

func (m *OTPMailer) SendOTP(ctx context.Context, email, code string, isDataroom bool) error {
	html, err := mail.RenderOTPEmail(mail.OTPEmailData{Code: code, Email: email, IsDataroom: isDataroom})
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	kind := "document"
	if isDataroom {
		kind = "dataroom"
	}
	return m.mailer.Send(ctx, mail.Message{
		From:    m.from,
		To:      []string{email},
		Subject: fmt.Sprintf("One-time passcode to access the %s", kind),
		HTML:    html,
		Text:    fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code),
	})
}

// NotificationService tells a team that one of its links was viewed.
type NotificationService struct {
	views   repository.ViewRepository
	teams   repository.TeamRepository
	mailer  mail.Mailer
	from    string
	baseURL string
	logger  *zap.Logger
}

// NotificationDeps wires NotificationService.
type NotificationDeps struct {
	Views   repository.ViewRepository
	Teams   repository.TeamRepository
	Mailer  mail.Mailer
	From    string
	BaseURL string
	Logger  *zap.Logger
}

func NewNotificationService(deps NotificationDeps) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		views:   deps.Views,
		teams:   deps.Teams,
		mailer:  deps.Mailer,
		from:    deps.From,
		baseURL: strings.TrimSuffix(deps.BaseURL, "/"),
		logger:  logger,
	}
}

// Notify emails the team admin, with managers in cc, about viewID. Location
// is only disclosed to plans that include it.
func (s *NotificationService) Notify(ctx context.Context, viewID string, loc model.Location) error {
	view, err := s.views.GetForNotification(ctx, viewID)
	if err != nil {
		return fmt.Errorf("load view: %w", err)
	}

	members, err := s.teams.ListMembers(ctx, view.TeamID, model.RoleAdmin, model.RoleManager)
	if err != nil {
		return fmt.Errorf("load team members: %w", err)
	}
	admin, ok := lo.Find(members, func(m model.TeamMember) bool { return m.Role == model.RoleAdmin })
	if !ok {
		return ErrNoTeamAdmin
	}
	cc := lo.FilterMap(members, func(m model.TeamMember, _ int) (string, bool) {
		return m.Email, m.Role == model.RoleManager && m.Email != admin.Email
	})

	data := mail.ViewedEmailData{ViewerEmail: lo.FromPtr(view.ViewerEmail)}
	if view.Link != nil {
		data.LinkName = lo.FromPtr(view.Link.Name)
	}
	switch {
	case view.ViewType == model.ViewTypeDataroom && view.Dataroom != nil:
		data.Kind = "dataroom"
		data.Title = view.Dataroom.Name
		data.DashboardURL = s.dashboardURL("datarooms", view.Dataroom.ID)
	case view.Document != nil:
		data.Kind = "document"
		data.Title = view.Document.Name
		data.DashboardURL = s.dashboardURL("documents", view.Document.ID)
	default:
		return fmt.Errorf("view %s has neither document nor dataroom", viewID)
	}
	if view.Team.IncludesLocation() {
		data.Location = formatLocation(loc)
	}

	html, err := mail.RenderViewedEmail(data)
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	if err := s.mailer.Send(ctx, mail.Message{
		From:    s.from,
		To:      []string{admin.Email},
		Cc:      cc,
		Subject: fmt.Sprintf("Your %s has been viewed: %s", data.Kind, data.Title),
		HTML:    html,
	}); err != nil {
		return err
	}

	s.logger.Debug("view notification sent",
		zap.String("view_id", viewID),
		zap.String("team_id", view.TeamID),
		zap.Int("cc", len(cc)),
	)
	return nil
}

func (s *NotificationService) dashboardURL(section, id string) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, section, id)
}

// formatLocation renders "city, region, country" for US viewers and
// "city, country" elsewhere, skipping unknown parts.
func formatLocation(loc model.Location) string {
	parts := []string{loc.City, loc.Country}
	if loc.Country == "US" {
		parts = []string{loc.City, loc.Region, loc.Country}
	}
	parts = lo.Filter(parts, func(p string, _ int) bool {
		return p != ""
	})
	return strings.Join(parts, ", ")
}
