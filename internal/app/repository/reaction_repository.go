package repository

import (
	"context"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
)

// ReactionRepository defines the data access contract for page reactions.
type ReactionRepository interface {
	Create(ctx context.Context, reaction *model.Reaction) error
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository returns a GORM-backed ReactionRepository.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Create(ctx context.Context, reaction *model.Reaction) error {
	if reaction.ID == "" {
		reaction.ID = model.NewID("reaction")
	}
	return r.db.WithContext(ctx).Create(reaction).Error
}
