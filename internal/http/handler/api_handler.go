package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/app/service"
	"github.com/sifan077/DocLink/internal/http/middleware"
	"github.com/sifan077/DocLink/internal/infra/storage"
	"go.uber.org/zap"
)

// DocumentDuplicator copies the stored files of a document.
type DocumentDuplicator interface {
	DuplicateFiles(ctx context.Context, userID, documentID string) (*storage.CopyResult, error)
}

// DataroomViewLister lists the traffic of a dataroom.
type DataroomViewLister interface {
	ListViews(ctx context.Context, userID, teamID, dataroomID string) (*service.DataroomViews, error)
}

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger    *zap.Logger
	Links     service.LinkService
	Documents DocumentDuplicator
	Datarooms DataroomViewLister
}

// APIHandler implements the owner-facing API endpoints.
type APIHandler struct {
	logger    *zap.Logger
	links     service.LinkService
	documents DocumentDuplicator
	datarooms DataroomViewLister
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:    logger,
		links:     deps.Links,
		documents: deps.Documents,
		datarooms: deps.Datarooms,
	}
}

// Register wires API routes onto the provided router. Session parsing must
// already run on router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		links := api.Group("/links")
		{
			links.Get("/domains/:domain/:slug", h.GetDomainLink)
			links.Post("/:id/preview", middleware.RequireSession(), h.IssuePreview)
		}

		documents := api.Group("/documents", middleware.RequireSession())
		{
			documents.Get("/:id/links", h.ListDocumentLinks)
			documents.Post("/:id/duplicate-files", h.DuplicateFiles)
		}

		api.Get("/teams/:teamId/datarooms/:id/views", middleware.RequireSession(), h.ListDataroomViews)
	}
}

// DomainLinkResponse is what anonymous visitors learn about a custom domain
// link before passing its gates.
type DomainLinkResponse struct {
	ID             string     `json:"id"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	EmailProtected bool       `json:"emailProtected"`
	AllowDownload  bool       `json:"allowDownload"`
	HasPassword    bool       `json:"hasPassword"`
	DocumentID     *string    `json:"documentId"`
}

// GetDomainLink handles GET /api/links/domains/:domain/:slug
func (h *APIHandler) GetDomainLink(c *fiber.Ctx) error {
	link, err := h.links.GetByDomainSlug(userContext(c), c.Params("domain"), c.Params("slug"))
	if err != nil {
		return h.fail(c, "failed to resolve domain link", err)
	}
	return c.JSON(DomainLinkResponse{
		ID:             link.ID,
		ExpiresAt:      link.ExpiresAt,
		EmailProtected: link.EmailProtected,
		AllowDownload:  link.AllowDownload,
		HasPassword:    link.HasPassword(),
		DocumentID:     link.DocumentID,
	})
}

// IssuePreview handles POST /api/links/:id/preview
func (h *APIHandler) IssuePreview(c *fiber.Ctx) error {
	grant, err := h.links.IssuePreview(userContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to issue preview token", err)
	}
	return c.JSON(grant)
}

// ListDocumentLinks handles GET /api/documents/:id/links
func (h *APIHandler) ListDocumentLinks(c *fiber.Ctx) error {
	links, err := h.links.ListDocumentLinks(userContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to list document links", err)
	}
	return c.JSON(links)
}

// DuplicateFiles handles POST /api/documents/:id/duplicate-files
func (h *APIHandler) DuplicateFiles(c *fiber.Ctx) error {
	res, err := h.documents.DuplicateFiles(userContext(c), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to duplicate document files", err)
	}
	return c.JSON(res)
}

// ListDataroomViews handles GET /api/teams/:teamId/datarooms/:id/views
func (h *APIHandler) ListDataroomViews(c *fiber.Ctx) error {
	views, err := h.datarooms.ListViews(userContext(c), middleware.UserID(c), c.Params("teamId"), c.Params("id"))
	if err != nil {
		return h.fail(c, "failed to list dataroom views", err)
	}
	return c.JSON(views)
}

// fail maps service errors onto HTTP statuses.
func (h *APIHandler) fail(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
	case errors.Is(err, repository.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Link not found"})
	case errors.Is(err, repository.ErrDocumentNotFound), errors.Is(err, repository.ErrVersionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Document not found"})
	case errors.Is(err, repository.ErrViewNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "View not found"})
	case errors.Is(err, storage.ErrInvalidFilePath), errors.Is(err, storage.ErrUnsupportedCopy):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	h.logger.Error(msg, zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal Server Error"})
}
