package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/sifan077/DocLink/internal/app/repository"
	"github.com/sifan077/DocLink/internal/app/service"
	"github.com/sifan077/DocLink/internal/http/middleware"
	"go.uber.org/zap"
)

// ReactionRecorder stores page reactions.
type ReactionRecorder interface {
	Record(ctx context.Context, viewID string, pageNumber int, kind string) (*model.Reaction, error)
}

// ViewNotifier emails the owners of a viewed link.
type ViewNotifier interface {
	Notify(ctx context.Context, viewID string, loc model.Location) error
}

// JobDeps groups dependencies required by JobHandler.
type JobDeps struct {
	Logger         *zap.Logger
	Reactions      ReactionRecorder
	Notifier       ViewNotifier
	InternalAPIKey string
}

// JobHandler serves viewer side effects and internal job triggers.
type JobHandler struct {
	logger    *zap.Logger
	reactions ReactionRecorder
	notifier  ViewNotifier
	apiKey    string
}

func NewJobHandler(deps JobDeps) *JobHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobHandler{
		logger:    logger,
		reactions: deps.Reactions,
		notifier:  deps.Notifier,
		apiKey:    deps.InternalAPIKey,
	}
}

func (h *JobHandler) Register(router fiber.Router) {
	router.Post("/api/record_reaction", h.RecordReaction)
	router.Post("/api/jobs/send-notification", middleware.InternalAPIKey(h.apiKey), h.SendNotification)
}

// RecordReactionRequest is the POST /api/record_reaction body.
type RecordReactionRequest struct {
	ViewID     string `json:"viewId" validate:"required"`
	PageNumber int    `json:"pageNumber" validate:"gte=1"`
	Type       string `json:"type" validate:"required,max=32"`
}

// RecordReaction handles POST /api/record_reaction
func (h *JobHandler) RecordReaction(c *fiber.Ctx) error {
	var req RecordReactionRequest
	if err := bindJSON(c, &req); err != nil {
		return badRequest(c, err)
	}

	if _, err := h.reactions.Record(userContext(c), req.ViewID, req.PageNumber, req.Type); err != nil {
		if errors.Is(err, repository.ErrViewNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "View not found"})
		}
		h.logger.Error("failed to record reaction", zap.String("view_id", req.ViewID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Reaction recorded"})
}

// SendNotificationRequest is the POST /api/jobs/send-notification body.
type SendNotificationRequest struct {
	ViewID       string         `json:"viewId" validate:"required"`
	LocationData model.Location `json:"locationData"`
}

// SendNotification handles POST /api/jobs/send-notification
func (h *JobHandler) SendNotification(c *fiber.Ctx) error {
	var req SendNotificationRequest
	if err := bindJSON(c, &req); err != nil {
		return badRequest(c, err)
	}

	err := h.notifier.Notify(userContext(c), req.ViewID, req.LocationData)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "Successfully sent view notification", "viewId": req.ViewID})
	case errors.Is(err, repository.ErrViewNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "View not found"})
	case errors.Is(err, service.ErrNoTeamAdmin):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "No team admin found"})
	}

	h.logger.Error("failed to send view notification",
		zap.String("view_id", req.ViewID),
		zap.Error(err),
		zap.Bool("alert", true),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}
