package repository

import (
	"context"
	"errors"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested link does not exist.
	ErrLinkNotFound = errors.New("link not found")
)

// LinkRepository defines the data access contract for share links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByID(ctx context.Context, id string) (*model.Link, error)
	GetByDomainSlug(ctx context.Context, domain, slug string) (*model.Link, error)
	ListByDocument(ctx context.Context, documentID string) ([]model.Link, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	if link.ID == "" {
		link.ID = model.NewID("link")
	}
	if err := r.db.WithContext(ctx).Omit("Team").Create(link).Error; err != nil {
		return err
	}
	return nil
}

// GetByID loads the link with its team and custom fields, which the view
// pipeline needs for plan gating and custom field responses.
func (r *linkRepository) GetByID(ctx context.Context, id string) (*model.Link, error) {
	var link model.Link
	err := r.db.WithContext(ctx).
		Preload("Team").
		Preload("CustomFields", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Where("id = ?", id).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetByDomainSlug(ctx context.Context, domain, slug string) (*model.Link, error) {
	var link model.Link
	err := r.db.WithContext(ctx).
		Preload("Team").
		Where("domain_slug = ? AND slug = ?", domain, slug).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) ListByDocument(ctx context.Context, documentID string) ([]model.Link, error) {
	var result []model.Link
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
