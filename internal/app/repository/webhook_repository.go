package repository

import (
	"context"

	"github.com/samber/lo"
	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
)

// WebhookRepository defines read access to team webhooks.
type WebhookRepository interface {
	ListByTeamAndTrigger(ctx context.Context, teamID, trigger string) ([]model.Webhook, error)
}

type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository returns a GORM-backed WebhookRepository.
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

// ListByTeamAndTrigger filters triggers in Go since they are stored as a JSON array.
func (r *webhookRepository) ListByTeamAndTrigger(ctx context.Context, teamID, trigger string) ([]model.Webhook, error) {
	var hooks []model.Webhook
	if err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&hooks).Error; err != nil {
		return nil, err
	}
	return lo.Filter(hooks, func(h model.Webhook, _ int) bool {
		return h.Subscribes(trigger)
	}), nil
}
