package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/app/security"
)

// ErrForbidden signals that the session user is not a member of the owning team.
var ErrForbidden = errors.New("forbidden")

// PreviewIssuer mints preview tokens.
type PreviewIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// PreviewGrant is a freshly minted preview token.
type PreviewGrant struct {
	PreviewToken string    `json:"previewToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// LinkService defines owner and lookup operations on links.
type LinkService interface {
	GetByDomainSlug(ctx context.Context, domain, slug string) (*model.Link, error)
	ListDocumentLinks(ctx context.Context, userID, documentID string) ([]model.Link, error)
	IssuePreview(ctx context.Context, userID, linkID string) (*PreviewGrant, error)
}

type linkService struct {
	links    repository.LinkRepository
	docs     repository.DocumentRepository
	teams    repository.TeamRepository
	previews PreviewIssuer
}

// NewLinkService returns a service implementation backed by the given repositories.
func NewLinkService(links repository.LinkRepository, docs repository.DocumentRepository, teams repository.TeamRepository, previews PreviewIssuer) LinkService {
	return &linkService{links: links, docs: docs, teams: teams, previews: previews}
}

// GetByDomainSlug resolves a custom-domain link. Custom domains are a paid
// feature, so links of free teams are reported as missing.
func (s *linkService) GetByDomainSlug(ctx context.Context, domain, slug string) (*model.Link, error) {
	link, err := s.links.GetByDomainSlug(ctx, domain, slug)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link.IsArchived || link.Team.IsFree() {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (s *linkService) ListDocumentLinks(ctx context.Context, userID, documentID string) ([]model.Link, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if err := requireMember(ctx, s.teams, doc.TeamID, userID); err != nil {
		return nil, err
	}

	links, err := s.links.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

func (s *linkService) IssuePreview(ctx context.Context, userID, linkID string) (*PreviewGrant, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if err := requireMember(ctx, s.teams, link.TeamID, userID); err != nil {
		return nil, err
	}

	token, expires, err := s.previews.Issue(security.PreviewSubject(userID, link.ID))
	if err != nil {
		return nil, fmt.Errorf("issue preview token: %w", err)
	}
	return &PreviewGrant{PreviewToken: token, ExpiresAt: expires}, nil
}

func requireMember(ctx context.Context, teams repository.TeamRepository, teamID, userID string) error {
	if userID == "" {
		return ErrForbidden
	}
	ok, err := teams.IsMember(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
