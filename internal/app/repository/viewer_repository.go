package repository

import (
	"context"
	"errors"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrViewerNotFound signals that no viewer exists for (team, email).
var ErrViewerNotFound = errors.New("viewer not found")

// ViewerRepository defines the data access contract for viewers.
type ViewerRepository interface {
	FindByEmail(ctx context.Context, teamID, email string) (*model.Viewer, error)
	FindOrCreate(ctx context.Context, teamID, email string, verified bool) (*model.Viewer, error)
}

type viewerRepository struct {
	db *gorm.DB
}

// NewViewerRepository returns a GORM-backed ViewerRepository.
func NewViewerRepository(db *gorm.DB) ViewerRepository {
	return &viewerRepository{db: db}
}

func (r *viewerRepository) FindByEmail(ctx context.Context, teamID, email string) (*model.Viewer, error) {
	var viewer model.Viewer
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND email = ?", teamID, email).
		First(&viewer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrViewerNotFound
		}
		return nil, err
	}
	return &viewer, nil
}

// FindOrCreate returns the viewer for (team, email), creating it when absent.
// The insert ignores unique conflicts so concurrent first visits converge on one row.
func (r *viewerRepository) FindOrCreate(ctx context.Context, teamID, email string, verified bool) (*model.Viewer, error) {
	viewer, err := r.FindByEmail(ctx, teamID, email)
	if err == nil {
		return viewer, nil
	}
	if !errors.Is(err, ErrViewerNotFound) {
		return nil, err
	}

	candidate := &model.Viewer{
		ID:       model.NewID("viewer"),
		TeamID:   teamID,
		Email:    email,
		Verified: verified,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "team_id"}, {Name: "email"}},
			DoNothing: true,
		}).
		Create(candidate).Error; err != nil {
		return nil, err
	}

	return r.FindByEmail(ctx, teamID, email)
}
