package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

func strPtr(s string) *string { return &s }

func TestLinkRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.Team{ID: "team_1", Name: "Acme", Plan: model.PlanPro}).Error)

	repo := NewLinkRepository(db)
	link := &model.Link{
		ID:         "link_1",
		TeamID:     "team_1",
		DocumentID: strPtr("doc_1"),
		AllowList:  []string{"@acme.com"},
		CustomFields: []model.LinkCustomField{
			{ID: "cf_2", Identifier: "company", Label: "Company", OrderIndex: 1},
			{ID: "cf_1", Identifier: "role", Label: "Role", OrderIndex: 0},
		},
	}
	require.NoError(t, repo.Create(ctx, link))

	got, err := repo.GetByID(ctx, "link_1")
	require.NoError(t, err)
	require.NotNil(t, got.Team)
	assert.Equal(t, model.PlanPro, got.Team.Plan)
	assert.Equal(t, []string{"@acme.com"}, got.AllowList)
	require.Len(t, got.CustomFields, 2)
	assert.Equal(t, "role", got.CustomFields[0].Identifier)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestLinkRepository_DomainSlugAndDocument(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewLinkRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Link{
		ID: "link_a", TeamID: "team_1", DocumentID: strPtr("doc_1"),
		DomainSlug: strPtr("docs.acme.com"), Slug: strPtr("deck"),
	}))
	require.NoError(t, repo.Create(ctx, &model.Link{ID: "link_b", TeamID: "team_1", DocumentID: strPtr("doc_1")}))
	require.NoError(t, repo.Create(ctx, &model.Link{ID: "link_c", TeamID: "team_1", DocumentID: strPtr("doc_2")}))

	got, err := repo.GetByDomainSlug(ctx, "docs.acme.com", "deck")
	require.NoError(t, err)
	assert.Equal(t, "link_a", got.ID)

	_, err = repo.GetByDomainSlug(ctx, "docs.acme.com", "other")
	assert.ErrorIs(t, err, ErrLinkNotFound)

	links, err := repo.ListByDocument(ctx, "doc_1")
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestViewerRepository_FindOrCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewViewerRepository(db)

	first, err := repo.FindOrCreate(ctx, "team_1", "user@acme.com", true)
	require.NoError(t, err)
	assert.True(t, first.Verified)

	second, err := repo.FindOrCreate(ctx, "team_1", "user@acme.com", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := repo.FindOrCreate(ctx, "team_2", "user@acme.com", false)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	var count int64
	require.NoError(t, db.Model(&model.Viewer{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestViewRepository_CreateWithResponses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewViewRepository(db)

	view := &model.View{
		LinkID:      "link_1",
		DocumentID:  strPtr("doc_1"),
		TeamID:      "team_1",
		ViewerEmail: strPtr("user@acme.com"),
		ViewType:    model.ViewTypeDocument,
		AgreementResponse: &model.AgreementResponse{
			AgreementID: "agr_1",
		},
		CustomFieldResponse: &model.CustomFieldResponse{
			Data: []model.CustomFieldAnswer{
				{Identifier: "company", Label: "Company", Response: "Acme"},
				{Identifier: "role", Label: "Role", Response: ""},
			},
		},
	}
	require.NoError(t, repo.Create(ctx, view))
	require.NotEmpty(t, view.ID)

	got, err := repo.GetByID(ctx, view.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AgreementResponse)
	assert.Equal(t, "agr_1", got.AgreementResponse.AgreementID)
	require.NotNil(t, got.CustomFieldResponse)
	assert.Len(t, got.CustomFieldResponse.Data, 2)
	assert.Equal(t, "", got.CustomFieldResponse.Data[1].Response)

	_, err = repo.GetByID(ctx, "view_missing")
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestViewRepository_GetForNotification(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.Team{ID: "team_1", Name: "Acme", Plan: model.PlanBusiness}).Error)
	require.NoError(t, db.Create(&model.Document{ID: "doc_1", Name: "Deck", TeamID: "team_1"}).Error)
	require.NoError(t, db.Create(&model.Link{ID: "link_1", TeamID: "team_1", Name: strPtr("Investors")}).Error)

	repo := NewViewRepository(db)
	view := &model.View{LinkID: "link_1", DocumentID: strPtr("doc_1"), TeamID: "team_1", ViewType: model.ViewTypeDocument}
	require.NoError(t, repo.Create(ctx, view))

	got, err := repo.GetForNotification(ctx, view.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Document)
	assert.Equal(t, "Deck", got.Document.Name)
	require.NotNil(t, got.Link)
	assert.Equal(t, "Investors", *got.Link.Name)
	require.NotNil(t, got.Team)
	assert.Nil(t, got.Dataroom)
}

func TestVerificationTokenRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewVerificationTokenRepository(db)
	now := time.Now().UTC()
	ident := model.OTPIdentifier("link_1", "user@acme.com")

	require.NoError(t, repo.Create(ctx, &model.VerificationToken{Token: "111111", Identifier: ident, Expires: now.Add(10 * time.Minute)}))
	require.NoError(t, repo.Create(ctx, &model.VerificationToken{Token: "222222", Identifier: ident, Expires: now.Add(-2 * time.Hour)}))

	got, err := repo.Find(ctx, "111111", ident)
	require.NoError(t, err)
	assert.False(t, got.Expired(now))

	_, err = repo.Find(ctx, "111111", model.OTPIdentifier("link_2", "user@acme.com"))
	assert.ErrorIs(t, err, ErrTokenNotFound)

	removed, err := repo.DeleteExpired(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	removed, err = repo.DeleteByIdentifier(ctx, ident)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = repo.Find(ctx, "111111", ident)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestDocumentRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(db)

	require.NoError(t, db.Create(&model.DocumentVersion{ID: "ver_1", DocumentID: "doc_1", File: "a.pdf", Type: model.FileTypePDF}).Error)
	require.NoError(t, db.Create([]model.DocumentPage{
		{ID: "p3", VersionID: "ver_1", PageNumber: 3, File: "3.png"},
		{ID: "p1", VersionID: "ver_1", PageNumber: 1, File: "1.png", PageLinks: []model.PageLink{{Href: "https://acme.com", Coords: "1,2,3,4"}}},
		{ID: "p2", VersionID: "ver_1", PageNumber: 2, File: "2.png"},
	}).Error)

	version, err := repo.GetVersion(ctx, "ver_1")
	require.NoError(t, err)
	assert.Equal(t, model.FileTypePDF, version.Type)

	_, err = repo.GetVersion(ctx, "ver_missing")
	assert.ErrorIs(t, err, ErrVersionNotFound)

	pages, err := repo.ListPages(ctx, "ver_1")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{pages[0].PageNumber, pages[1].PageNumber, pages[2].PageNumber})
	assert.Equal(t, "https://acme.com", pages[0].PageLinks[0].Href)
}

func TestDocumentRepository_PrimaryVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewDocumentRepository(db)

	require.NoError(t, db.Create(&model.Document{ID: "doc_1", Name: "Deck", TeamID: "team_1"}).Error)
	require.NoError(t, db.Create([]model.DocumentVersion{
		{ID: "ver_1", DocumentID: "doc_1", VersionNumber: 1, File: "team_1/doc_1/a.pdf", IsPrimary: false},
		{ID: "ver_2", DocumentID: "doc_1", VersionNumber: 2, File: "team_1/doc_1/b.pdf", IsPrimary: true},
	}).Error)

	doc, err := repo.GetDocument(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, "team_1", doc.TeamID)

	_, err = repo.GetDocument(ctx, "doc_missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	primary, err := repo.GetPrimaryVersion(ctx, "doc_1")
	require.NoError(t, err)
	assert.Equal(t, "ver_2", primary.ID)

	_, err = repo.GetPrimaryVersion(ctx, "doc_missing")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestTeamRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTeamRepository(db)

	require.NoError(t, db.Create([]model.TeamMember{
		{TeamID: "team_1", UserID: "u1", Email: "admin@acme.com", Role: model.RoleAdmin},
		{TeamID: "team_1", UserID: "u2", Email: "mgr@acme.com", Role: model.RoleManager},
		{TeamID: "team_1", UserID: "u3", Email: "member@acme.com", Role: model.RoleMember},
	}).Error)

	members, err := repo.ListMembers(ctx, "team_1", model.RoleAdmin, model.RoleManager)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	all, err := repo.ListMembers(ctx, "team_1")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ok, err := repo.IsMember(ctx, "team_1", "u3")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, "team_2", "u3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWebhookRepository_ListByTeamAndTrigger(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewWebhookRepository(db)

	require.NoError(t, db.Create([]model.Webhook{
		{ID: "wh_1", TeamID: "team_1", URL: "https://a", Secret: "s", Triggers: []string{model.TriggerLinkViewed}},
		{ID: "wh_2", TeamID: "team_1", URL: "https://b", Secret: "s", Triggers: []string{"document_created"}},
		{ID: "wh_3", TeamID: "team_2", URL: "https://c", Secret: "s", Triggers: []string{model.TriggerLinkViewed}},
	}).Error)

	hooks, err := repo.ListByTeamAndTrigger(ctx, "team_1", model.TriggerLinkViewed)
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, "wh_1", hooks[0].ID)
}

func TestLinkViewEventRepository_CreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewLinkViewEventRepository(db)

	event := &model.LinkViewEvent{ID: "lv_1", ViewID: "view_1", LinkID: "link_1", Timestamp: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, event))
	require.NoError(t, repo.Create(ctx, &model.LinkViewEvent{ID: "lv_1", ViewID: "view_1", LinkID: "link_1", Timestamp: time.Now().UTC()}))

	count, err := repo.CountByLink(ctx, "link_1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestReactionRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := NewReactionRepository(db)

	reaction := &model.Reaction{ViewID: "view_1", PageNumber: 2, Type: "heart"}
	require.NoError(t, repo.Create(context.Background(), reaction))
	assert.NotEmpty(t, reaction.ID)
}
