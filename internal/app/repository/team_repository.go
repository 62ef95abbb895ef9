package repository

import (
	"context"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
)

// TeamRepository defines read access to team membership.
type TeamRepository interface {
	ListMembers(ctx context.Context, teamID string, roles ...string) ([]model.TeamMember, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository returns a GORM-backed TeamRepository.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) ListMembers(ctx context.Context, teamID string, roles ...string) ([]model.TeamMember, error) {
	q := r.db.WithContext(ctx).Where("team_id = ?", teamID)
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}

	var members []model.TeamMember
	if err := q.Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *teamRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
