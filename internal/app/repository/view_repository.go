package repository

import (
	"context"
	"errors"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrViewNotFound signals that the requested view does not exist.
var ErrViewNotFound = errors.New("view not found")

// ViewRepository defines the data access contract for recorded views.
type ViewRepository interface {
	Create(ctx context.Context, view *model.View) error
	GetByID(ctx context.Context, id string) (*model.View, error)
	GetForNotification(ctx context.Context, id string) (*model.View, error)
}

type viewRepository struct {
	db *gorm.DB
}

// NewViewRepository returns a GORM-backed ViewRepository.
func NewViewRepository(db *gorm.DB) ViewRepository {
	return &viewRepository{db: db}
}

// Create writes the view and its nested agreement and custom field responses
// in a single transaction.
func (r *viewRepository) Create(ctx context.Context, view *model.View) error {
	if view.ID == "" {
		view.ID = model.NewID("view")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(view).Error; err != nil {
			return err
		}
		if ar := view.AgreementResponse; ar != nil {
			if ar.ID == "" {
				ar.ID = model.NewID("agreement")
			}
			ar.ViewID = view.ID
			if err := tx.Create(ar).Error; err != nil {
				return err
			}
		}
		if cf := view.CustomFieldResponse; cf != nil {
			if cf.ID == "" {
				cf.ID = model.NewID("cfr")
			}
			cf.ViewID = view.ID
			if err := tx.Create(cf).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *viewRepository) GetByID(ctx context.Context, id string) (*model.View, error) {
	var view model.View
	err := r.db.WithContext(ctx).
		Preload("AgreementResponse").
		Preload("CustomFieldResponse").
		Where("id = ?", id).
		First(&view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrViewNotFound
		}
		return nil, err
	}
	return &view, nil
}

// GetForNotification loads the view with link, document, dataroom and team.
func (r *viewRepository) GetForNotification(ctx context.Context, id string) (*model.View, error) {
	var view model.View
	err := r.db.WithContext(ctx).
		Preload("Link").
		Preload("Document").
		Preload("Dataroom").
		Preload("Team").
		Where("id = ?", id).
		First(&view).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrViewNotFound
		}
		return nil, err
	}
	return &view, nil
}
