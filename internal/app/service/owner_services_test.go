package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/app/security"
	"github.com/sifan077/DocLink/internal/infra/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ownerMembers = []model.TeamMember{
	{TeamID: "team_1", UserID: "owner", Email: "o@acme.com", Role: model.RoleAdmin},
}

func ownerDocs() *mockDocumentRepository {
	return &mockDocumentRepository{
		docs: map[string]model.Document{
			"doc_1": {ID: "doc_1", Name: "Deck", TeamID: "team_1"},
		},
		versions: map[string]model.DocumentVersion{
			"ver_1": {ID: "ver_1", DocumentID: "doc_1", File: "team_1/doc_abc/deck.pdf", StorageType: model.StorageS3Path, IsPrimary: true},
		},
	}
}

type recordingIssuer struct {
	subject string
}

func (r *recordingIssuer) Issue(subject string) (string, time.Time, error) {
	r.subject = subject
	return "preview-token", time.Unix(1700000000, 0), nil
}

func TestLinkService_GetByDomainSlug(t *testing.T) {
	links := map[string]*model.Link{
		"paid":     {ID: "l1", Team: &model.Team{Plan: model.PlanPro}},
		"free":     {ID: "l2", Team: &model.Team{Plan: model.PlanFree}},
		"archived": {ID: "l3", IsArchived: true, Team: &model.Team{Plan: model.PlanBusiness}},
	}
	repo := &mockLinkRepository{getDomainFn: func(ctx context.Context, domain, slug string) (*model.Link, error) {
		if l, ok := links[slug]; ok {
			return l, nil
		}
		return nil, repository.ErrLinkNotFound
	}}
	svc := NewLinkService(repo, ownerDocs(), &mockTeamRepository{}, &recordingIssuer{})

	link, err := svc.GetByDomainSlug(context.Background(), "docs.acme.com", "paid")
	require.NoError(t, err)
	assert.Equal(t, "l1", link.ID)

	for _, slug := range []string{"free", "archived", "missing"} {
		_, err := svc.GetByDomainSlug(context.Background(), "docs.acme.com", slug)
		assert.ErrorIs(t, err, repository.ErrLinkNotFound, slug)
	}
}

func TestLinkService_ListDocumentLinks(t *testing.T) {
	repo := &mockLinkRepository{listByDocFn: func(ctx context.Context, documentID string) ([]model.Link, error) {
		return []model.Link{{ID: "l1"}, {ID: "l2"}}, nil
	}}
	svc := NewLinkService(repo, ownerDocs(), &mockTeamRepository{members: ownerMembers}, &recordingIssuer{})

	links, err := svc.ListDocumentLinks(context.Background(), "owner", "doc_1")
	require.NoError(t, err)
	assert.Len(t, links, 2)

	_, err = svc.ListDocumentLinks(context.Background(), "stranger", "doc_1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ListDocumentLinks(context.Background(), "", "doc_1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ListDocumentLinks(context.Background(), "owner", "doc_missing")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
}

func TestLinkService_IssuePreview(t *testing.T) {
	issuer := &recordingIssuer{}
	svc := NewLinkService(staticLinks(&model.Link{ID: "link_1", TeamID: "team_1"}), ownerDocs(),
		&mockTeamRepository{members: ownerMembers}, issuer)

	grant, err := svc.IssuePreview(context.Background(), "owner", "link_1")
	require.NoError(t, err)
	assert.Equal(t, "preview-token", grant.PreviewToken)
	assert.Equal(t, security.PreviewSubject("owner", "link_1"), issuer.subject)

	_, err = svc.IssuePreview(context.Background(), "stranger", "link_1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.IssuePreview(context.Background(), "owner", "link_missing")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

type fakeStats struct {
	views   []repository.DataroomViewRow
	viewers []repository.DataroomViewerRow
	err     error
	limit   uint64
}

func (f *fakeStats) ListDataroomViews(ctx context.Context, teamID, dataroomID string, limit uint64) ([]repository.DataroomViewRow, error) {
	f.limit = limit
	return f.views, f.err
}

func (f *fakeStats) ListDataroomViewers(ctx context.Context, teamID, dataroomID string) ([]repository.DataroomViewerRow, error) {
	return f.viewers, nil
}

func TestDataroomService_ListViews(t *testing.T) {
	stats := &fakeStats{
		views:   []repository.DataroomViewRow{{ID: "view_1", LinkID: "link_1"}},
		viewers: []repository.DataroomViewerRow{{ID: "viewer_1", Email: "v@x.com", Views: 3}},
	}
	svc := NewDataroomService(&mockTeamRepository{members: ownerMembers}, stats)

	out, err := svc.ListViews(context.Background(), "owner", "team_1", "dr_1")
	require.NoError(t, err)
	assert.Len(t, out.Views, 1)
	assert.Len(t, out.Viewers, 1)
	assert.EqualValues(t, dataroomViewsLimit, stats.limit)

	_, err = svc.ListViews(context.Background(), "stranger", "team_1", "dr_1")
	assert.ErrorIs(t, err, ErrForbidden)

	stats.err = errors.New("pg down")
	_, err = svc.ListViews(context.Background(), "owner", "team_1", "dr_1")
	assert.ErrorContains(t, err, "pg down")
}

type memReactionRepository struct {
	created []model.Reaction
}

func (m *memReactionRepository) Create(ctx context.Context, reaction *model.Reaction) error {
	m.created = append(m.created, *reaction)
	return nil
}

func TestReactionService_Record(t *testing.T) {
	views := &mockViewRepository{getFn: func(ctx context.Context, id string) (*model.View, error) {
		if id == "view_1" {
			return &model.View{ID: id}, nil
		}
		return nil, repository.ErrViewNotFound
	}}
	reactions := &memReactionRepository{}
	svc := NewReactionService(views, reactions)

	r, err := svc.Record(context.Background(), "view_1", 3, " like ")
	require.NoError(t, err)
	assert.Equal(t, "like", r.Type)
	assert.Equal(t, 3, r.PageNumber)
	require.Len(t, reactions.created, 1)

	_, err = svc.Record(context.Background(), "view_missing", 1, "like")
	assert.ErrorIs(t, err, repository.ErrViewNotFound)
	assert.Len(t, reactions.created, 1)
}

type fakeCopier struct {
	teamID, filePath, storageType string
}

func (f *fakeCopier) Copy(ctx context.Context, teamID, filePath, storageType string) (*storage.CopyResult, error) {
	f.teamID, f.filePath, f.storageType = teamID, filePath, storageType
	return &storage.CopyResult{StorageType: storageType, Copied: 2}, nil
}

func TestDocumentService_DuplicateFiles(t *testing.T) {
	copier := &fakeCopier{}
	svc := NewDocumentService(ownerDocs(), &mockTeamRepository{members: ownerMembers}, copier)

	res, err := svc.DuplicateFiles(context.Background(), "owner", "doc_1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)
	assert.Equal(t, "team_1", copier.teamID)
	assert.Equal(t, "team_1/doc_abc/deck.pdf", copier.filePath)
	assert.Equal(t, model.StorageS3Path, copier.storageType)

	_, err = svc.DuplicateFiles(context.Background(), "stranger", "doc_1")
	assert.ErrorIs(t, err, ErrForbidden)
}
