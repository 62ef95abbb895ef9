package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/DocLink/internal/app/service"
	"github.com/sifan077/DocLink/internal/http/middleware"
	httpUtil "github.com/sifan077/DocLink/internal/http/util"
	metrics "github.com/sifan077/DocLink/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ViewRecorder runs the view pipeline.
type ViewRecorder interface {
	RecordView(ctx context.Context, req service.ViewRequest) (*service.ViewResult, error)
}

// ViewDeps groups dependencies required by ViewHandler.
type ViewDeps struct {
	Logger     *zap.Logger
	Views      ViewRecorder
	TrustProxy bool
}

// ViewHandler serves POST /api/views.
type ViewHandler struct {
	logger     *zap.Logger
	views      ViewRecorder
	trustProxy bool
}

// NewViewHandler creates a view handler with the provided dependencies.
func NewViewHandler(deps ViewDeps) *ViewHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewHandler{
		logger:     logger,
		views:      deps.Views,
		trustProxy: deps.TrustProxy,
	}
}

// Register wires view routes onto the provided router.
func (h *ViewHandler) Register(router fiber.Router) {
	router.Post("/api/views", h.RecordView)
}

// RecordViewRequest is the POST /api/views body.
type RecordViewRequest struct {
	LinkID            string  `json:"linkId" validate:"required"`
	DocumentID        string  `json:"documentId"`
	UserID            *string `json:"userId"`
	DocumentVersionID string  `json:"documentVersionId"`
	DocumentName      string  `json:"documentName"`
	HasPages          bool    `json:"hasPages"`
	OwnerID           string  `json:"ownerId"`

	Email                  string            `json:"email"`
	Password               string            `json:"password"`
	Name                   string            `json:"name"`
	HasConfirmedAgreement  bool              `json:"hasConfirmedAgreement"`
	CustomFields           map[string]string `json:"customFields"`
	UseAdvancedExcelViewer bool              `json:"useAdvancedExcelViewer"`
	PreviewToken           string            `json:"previewToken"`

	Code  string `json:"code"`
	Token string `json:"token"`
	// VerifiedEmail is accepted for client compatibility and not trusted.
	VerifiedEmail string `json:"verifiedEmail"`
}

// RecordView handles POST /api/views.
func (h *ViewHandler) RecordView(c *fiber.Ctx) error {
	var body RecordViewRequest
	if err := bindJSON(c, &body); err != nil {
		metrics.ViewRequests.WithLabelValues("invalid").Inc()
		return badRequest(c, err)
	}

	req := service.ViewRequest{
		LinkID:                 body.LinkID,
		DocumentID:             body.DocumentID,
		DocumentVersionID:      body.DocumentVersionID,
		DocumentName:           body.DocumentName,
		HasPages:               body.HasPages,
		OwnerID:                body.OwnerID,
		UseAdvancedExcelViewer: body.UseAdvancedExcelViewer,
		Visitor: service.Visitor{
			Email:                 body.Email,
			Name:                  body.Name,
			Password:              body.Password,
			HasConfirmedAgreement: body.HasConfirmedAgreement,
			CustomFields:          body.CustomFields,
		},
		Credential:    service.NewCredential(body.Code, body.Token),
		PreviewToken:  body.PreviewToken,
		SessionUserID: middleware.UserID(c),
		Client: service.ClientInfo{
			IP:        httpUtil.ClientIP(c, h.trustProxy),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Referer:   c.Get(fiber.HeaderReferer),
			Location:  httpUtil.GeoLocation(c),
		},
	}

	res, err := h.views.RecordView(userContext(c), req)
	if err != nil {
		if ge, ok := service.AsGateError(err); ok {
			metrics.ViewRequests.WithLabelValues("rejected").Inc()
			metrics.GateRejections.WithLabelValues(ge.Reason).Inc()
			return c.Status(ge.Status).JSON(gateErrorBody(ge))
		}

		metrics.ViewRequests.WithLabelValues("error").Inc()
		h.logger.Error("failed to record view",
			zap.String("link_id", body.LinkID),
			zap.Error(err),
			zap.Bool("alert", true),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	switch {
	case res.Type != "":
		metrics.ViewRequests.WithLabelValues("verification_sent").Inc()
	case res.IsPreview:
		metrics.ViewRequests.WithLabelValues("preview").Inc()
	default:
		metrics.ViewRequests.WithLabelValues("recorded").Inc()
	}
	return c.JSON(res)
}

func gateErrorBody(ge *service.GateError) fiber.Map {
	body := fiber.Map{"message": ge.Message}
	if ge.ResetVerification {
		body["resetVerification"] = true
	}
	if ge.ResetPreview {
		body["resetPreview"] = true
	}
	return body
}
