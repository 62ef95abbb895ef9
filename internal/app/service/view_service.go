package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	metrics "github.com/sifan077/DocLink/internal/infra/prometheus"
	"github.com/sifan077/DocLink/internal/infra/sheet"
	"go.uber.org/zap"
)

// Admitter decides whether a view request may proceed.
type Admitter interface {
	Admit(ctx context.Context, req ViewRequest) (*Admission, error)
}

// ContentSource resolves the document version a view serves.
type ContentSource interface {
	Resolve(ctx context.Context, team *model.Team, req ContentRequest) (*Content, error)
}

// ViewResult is the POST /api/views response body.
type ViewResult struct {
	Message           string                 `json:"message"`
	Type              string                 `json:"type,omitempty"`
	ViewID            string                 `json:"viewId,omitempty"`
	IsPreview         bool                   `json:"isPreview,omitempty"`
	File              string                 `json:"file,omitempty"`
	Pages             []PageContent          `json:"pages,omitempty"`
	SheetData         []sheet.Data           `json:"sheetData,omitempty"`
	FileType          string                 `json:"fileType,omitempty"`
	WatermarkConfig   *model.WatermarkConfig `json:"watermarkConfig,omitempty"`
	IPAddress         string                 `json:"ipAddress,omitempty"`
	VerificationToken string                 `json:"verificationToken,omitempty"`
}

// ViewServiceDeps wires ViewService.
type ViewServiceDeps struct {
	Gate       Admitter
	Content    ContentSource
	Viewers    repository.ViewerRepository
	Views      repository.ViewRepository
	Dispatcher ViewDispatcher
	Logger     *zap.Logger
	// ExposeClientIP returns the real client ip for ip watermarks. Outside
	// production LocalhostIP is used instead.
	ExposeClientIP bool
	LocalhostIP    string
}

// ViewService admits, records and serves link views.
type ViewService struct {
	gate           Admitter
	content        ContentSource
	viewers        repository.ViewerRepository
	views          repository.ViewRepository
	dispatcher     ViewDispatcher
	logger         *zap.Logger
	exposeClientIP bool
	localhostIP    string
	now            func() time.Time
}

func NewViewService(deps ViewServiceDeps) *ViewService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{
		gate:           deps.Gate,
		content:        deps.Content,
		viewers:        deps.Viewers,
		views:          deps.Views,
		dispatcher:     deps.Dispatcher,
		logger:         logger,
		exposeClientIP: deps.ExposeClientIP,
		localhostIP:    deps.LocalhostIP,
		now:            time.Now,
	}
}

// RecordView runs the whole view pipeline. Content is resolved before anything
// is written, so a missing version leaves no view behind.
func (s *ViewService) RecordView(ctx context.Context, req ViewRequest) (*ViewResult, error) {
	adm, err := s.gate.Admit(ctx, req)
	if err != nil {
		return nil, err
	}
	if adm.VerificationSent {
		return &ViewResult{Type: "email-verification", Message: "Verification email sent."}, nil
	}

	link := adm.Link
	if link.LinkType != model.LinkTypeDataroom && link.DocumentID != nil &&
		req.DocumentID != "" && *link.DocumentID != req.DocumentID {
		return nil, errDocumentNotFound
	}

	content, err := s.content.Resolve(ctx, link.Team, ContentRequest{
		DocumentID:             req.DocumentID,
		VersionID:              req.DocumentVersionID,
		HasPages:               req.HasPages,
		UseAdvancedExcelViewer: req.UseAdvancedExcelViewer,
	})
	if err != nil {
		return nil, err
	}

	var view *model.View
	if !adm.IsPreview {
		view, err = s.persist(ctx, req, adm)
		if err != nil {
			return nil, err
		}
		metrics.ViewsRecorded.Inc()

		if s.dispatcher != nil {
			s.dispatcher.Dispatch(ctx, s.viewEvent(req, view), link.EnableNotification)
		}
	}

	res := &ViewResult{
		Message:           "View recorded",
		IsPreview:         adm.IsPreview,
		File:              content.File,
		Pages:             content.Pages,
		SheetData:         content.SheetData,
		FileType:          content.FileType,
		VerificationToken: adm.VerificationToken,
	}
	if view != nil {
		res.ViewID = view.ID
	}
	if link.EnableWatermark {
		res.WatermarkConfig = link.WatermarkConfig
		if link.WatermarkConfig.WantsIPAddress() {
			res.IPAddress = s.localhostIP
			if s.exposeClientIP {
				res.IPAddress = req.Client.IP
			}
		}
	}
	return res, nil
}

func (s *ViewService) persist(ctx context.Context, req ViewRequest, adm *Admission) (*model.View, error) {
	link := adm.Link
	email := strings.TrimSpace(req.Visitor.Email)

	view := &model.View{
		LinkID:   link.ID,
		TeamID:   link.TeamID,
		Verified: adm.Verified,
		ViewType: model.ViewTypeDocument,
	}
	if req.DocumentID != "" {
		view.DocumentID = lo.ToPtr(req.DocumentID)
	}
	if link.LinkType == model.LinkTypeDataroom {
		view.ViewType = model.ViewTypeDataroom
		view.DataroomID = link.DataroomID
	}
	if name := strings.TrimSpace(req.Visitor.Name); name != "" {
		view.ViewerName = lo.ToPtr(name)
	}

	if email != "" {
		viewer, err := s.viewers.FindOrCreate(ctx, link.TeamID, email, adm.Verified)
		if err != nil {
			return nil, fmt.Errorf("find or create viewer: %w", err)
		}
		view.ViewerID = lo.ToPtr(viewer.ID)
		view.ViewerEmail = lo.ToPtr(email)
	}

	if link.EnableAgreement && link.AgreementID != nil && *link.AgreementID != "" && req.Visitor.HasConfirmedAgreement {
		view.AgreementResponse = &model.AgreementResponse{AgreementID: *link.AgreementID}
	}

	if req.Visitor.CustomFields != nil && len(link.CustomFields) > 0 {
		view.CustomFieldResponse = &model.CustomFieldResponse{
			Data: lo.Map(link.CustomFields, func(f model.LinkCustomField, _ int) model.CustomFieldAnswer {
				return model.CustomFieldAnswer{
					Identifier: f.Identifier,
					Label:      f.Label,
					Response:   req.Visitor.CustomFields[f.Identifier],
				}
			}),
		}
	}

	if err := s.views.Create(ctx, view); err != nil {
		return nil, fmt.Errorf("create view: %w", err)
	}
	return view, nil
}

func (s *ViewService) viewEvent(req ViewRequest, view *model.View) model.ViewRecorded {
	return model.ViewRecorded{
		ClickID:    model.NewID("linkView"),
		ViewID:     view.ID,
		LinkID:     view.LinkID,
		TeamID:     view.TeamID,
		DocumentID: lo.FromPtr(view.DocumentID),
		DataroomID: lo.FromPtr(view.DataroomID),
		IP:         req.Client.IP,
		UserAgent:  req.Client.UserAgent,
		Referer:    req.Client.Referer,
		Location:   req.Client.Location,
		Timestamp:  s.now().UTC(),
	}
}
