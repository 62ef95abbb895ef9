package repository

import (
	"context"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkViewEventRepository defines the data access contract for analytics events.
type LinkViewEventRepository interface {
	Create(ctx context.Context, event *model.LinkViewEvent) error
	CountByLink(ctx context.Context, linkID string) (int64, error)
}

type linkViewEventRepository struct {
	db *gorm.DB
}

// NewLinkViewEventRepository returns a GORM-backed LinkViewEventRepository.
func NewLinkViewEventRepository(db *gorm.DB) LinkViewEventRepository {
	return &linkViewEventRepository{db: db}
}

// Create ignores duplicates so a redelivered message does not fail the consumer.
func (r *linkViewEventRepository) Create(ctx context.Context, event *model.LinkViewEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
}

func (r *linkViewEventRepository) CountByLink(ctx context.Context, linkID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.LinkViewEvent{}).
		Where("link_id = ?", linkID).
		Count(&count).Error
	return count, err
}
