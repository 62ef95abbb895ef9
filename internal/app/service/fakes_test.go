package service

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/infra/ratelimit"
	"github.com/sifan077/DocLink/internal/infra/sheet"
)

type mockLinkRepository struct {
	createFn    func(ctx context.Context, link *model.Link) error
	getFn       func(ctx context.Context, id string) (*model.Link, error)
	getDomainFn func(ctx context.Context, domain, slug string) (*model.Link, error)
	listByDocFn func(ctx context.Context, documentID string) ([]model.Link, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByID(ctx context.Context, id string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetByDomainSlug(ctx context.Context, domain, slug string) (*model.Link, error) {
	if m.getDomainFn != nil {
		return m.getDomainFn(ctx, domain, slug)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Link, error) {
	if m.listByDocFn != nil {
		return m.listByDocFn(ctx, documentID)
	}
	return nil, nil
}

func staticLinks(link *model.Link) *mockLinkRepository {
	return &mockLinkRepository{
		getFn: func(ctx context.Context, id string) (*model.Link, error) {
			if id != link.ID {
				return nil, repository.ErrLinkNotFound
			}
			cp := *link
			return &cp, nil
		},
	}
}

// memTokenRepository keeps verification tokens in memory.
type memTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]model.VerificationToken
}

func newMemTokenRepository() *memTokenRepository {
	return &memTokenRepository{tokens: map[string]model.VerificationToken{}}
}

func (r *memTokenRepository) Create(ctx context.Context, token *model.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = *token
	return nil
}

func (r *memTokenRepository) Find(ctx context.Context, token, identifier string) (*model.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vt, ok := r.tokens[token]
	if !ok || vt.Identifier != identifier {
		return nil, repository.ErrTokenNotFound
	}
	return &vt, nil
}

func (r *memTokenRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *memTokenRepository) DeleteByIdentifier(ctx context.Context, identifier string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, vt := range r.tokens {
		if vt.Identifier == identifier {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, vt := range r.tokens {
		if vt.Expires.Before(before) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepository) byIdentifier(identifier string) []model.VerificationToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VerificationToken
	for _, vt := range r.tokens {
		if vt.Identifier == identifier {
			out = append(out, vt)
		}
	}
	return out
}

type mockViewerRepository struct {
	findOrCreateFn func(ctx context.Context, teamID, email string, verified bool) (*model.Viewer, error)
	calls          int
}

func (m *mockViewerRepository) FindByEmail(ctx context.Context, teamID, email string) (*model.Viewer, error) {
	return nil, repository.ErrViewerNotFound
}

func (m *mockViewerRepository) FindOrCreate(ctx context.Context, teamID, email string, verified bool) (*model.Viewer, error) {
	m.calls++
	if m.findOrCreateFn != nil {
		return m.findOrCreateFn(ctx, teamID, email, verified)
	}
	return &model.Viewer{ID: "viewer_1", TeamID: teamID, Email: email, Verified: verified}, nil
}

type mockViewRepository struct {
	createFn   func(ctx context.Context, view *model.View) error
	getFn      func(ctx context.Context, id string) (*model.View, error)
	getNotifFn func(ctx context.Context, id string) (*model.View, error)
	created    []*model.View
}

func (m *mockViewRepository) Create(ctx context.Context, view *model.View) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, view); err != nil {
			return err
		}
	}
	if view.ID == "" {
		view.ID = model.NewID("view")
	}
	m.created = append(m.created, view)
	return nil
}

func (m *mockViewRepository) GetByID(ctx context.Context, id string) (*model.View, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrViewNotFound
}

func (m *mockViewRepository) GetForNotification(ctx context.Context, id string) (*model.View, error) {
	if m.getNotifFn != nil {
		return m.getNotifFn(ctx, id)
	}
	return nil, repository.ErrViewNotFound
}

type mockTeamRepository struct {
	members []model.TeamMember
	err     error
}

func (m *mockTeamRepository) ListMembers(ctx context.Context, teamID string, roles ...string) ([]model.TeamMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.TeamMember
	for _, member := range m.members {
		if member.TeamID != teamID {
			continue
		}
		if len(roles) == 0 {
			out = append(out, member)
			continue
		}
		for _, r := range roles {
			if member.Role == r {
				out = append(out, member)
				break
			}
		}
	}
	return out, nil
}

func (m *mockTeamRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, member := range m.members {
		if member.TeamID == teamID && member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type mockDocumentRepository struct {
	docs     map[string]model.Document
	versions map[string]model.DocumentVersion
	pages    map[string][]model.DocumentPage
}

func (m *mockDocumentRepository) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return &d, nil
}

func (m *mockDocumentRepository) GetPrimaryVersion(ctx context.Context, documentID string) (*model.DocumentVersion, error) {
	for _, v := range m.versions {
		if v.DocumentID == documentID && v.IsPrimary {
			return &v, nil
		}
	}
	return nil, repository.ErrVersionNotFound
}

func (m *mockDocumentRepository) GetVersion(ctx context.Context, id string) (*model.DocumentVersion, error) {
	v, ok := m.versions[id]
	if !ok {
		return nil, repository.ErrVersionNotFound
	}
	return &v, nil
}

func (m *mockDocumentRepository) ListPages(ctx context.Context, versionID string) ([]model.DocumentPage, error) {
	return m.pages[versionID], nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Limit(ctx context.Context, key string) (ratelimit.Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return ratelimit.Result{Allowed: true}, f.err
	}
	return ratelimit.Result{Allowed: f.allowed, Limit: 10}, nil
}

type fakePasswords struct {
	want string
	err  error
}

func (f fakePasswords) Check(stored, supplied string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return supplied == f.want, nil
}

type fakePreviews struct {
	valid map[string]string
}

func (f fakePreviews) Validate(subject, token string) error {
	if f.valid[subject] == token {
		return nil
	}
	return errInvalidPreviewForTest
}

type sentOTP struct {
	email, code string
	isDataroom  bool
}

type fakeOTPSender struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (f *fakeOTPSender) SendOTP(ctx context.Context, email, code string, isDataroom bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentOTP{email, code, isDataroom})
	return f.err
}

func (f *fakeOTPSender) last() sentOTP {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeFiles struct {
	err error
}

func (f fakeFiles) Resolve(ctx context.Context, file, storageType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://files.example/" + storageType + "/" + file, nil
}

type fakeSheets struct {
	data []sheet.Data
	urls []string
}

func (f *fakeSheets) ParseURL(ctx context.Context, fileURL string) ([]sheet.Data, error) {
	f.urls = append(f.urls, fileURL)
	return f.data, nil
}

type dispatched struct {
	event  model.ViewRecorded
	notify bool
}

type fakeDispatcher struct {
	calls []dispatched
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event model.ViewRecorded, notify bool) {
	f.calls = append(f.calls, dispatched{event, notify})
}

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeJetStream struct {
	mu   sync.Mutex
	msgs []publishedMsg
	err  error
}

func (f *fakeJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, publishedMsg{subj, data})
	return &nats.PubAck{Stream: model.ViewStreamName}, nil
}
