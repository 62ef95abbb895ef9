package repository

import (
	"context"
	"errors"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
)

var (
	// ErrDocumentNotFound signals that the document does not exist.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVersionNotFound signals that the document version does not exist.
	ErrVersionNotFound = errors.New("document version not found")
)

// DocumentRepository defines read access to document versions and pages.
type DocumentRepository interface {
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetPrimaryVersion(ctx context.Context, documentID string) (*model.DocumentVersion, error)
	GetVersion(ctx context.Context, id string) (*model.DocumentVersion, error)
	ListPages(ctx context.Context, versionID string) ([]model.DocumentPage, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository returns a GORM-backed DocumentRepository.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) GetPrimaryVersion(ctx context.Context, documentID string) (*model.DocumentVersion, error) {
	var version model.DocumentVersion
	if err := r.db.WithContext(ctx).
		Where("document_id = ? AND is_primary = ?", documentID, true).
		Order("version_number DESC").
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return &version, nil
}

func (r *documentRepository) GetVersion(ctx context.Context, id string) (*model.DocumentVersion, error) {
	var version model.DocumentVersion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return &version, nil
}

func (r *documentRepository) ListPages(ctx context.Context, versionID string) ([]model.DocumentPage, error) {
	var pages []model.DocumentPage
	if err := r.db.WithContext(ctx).
		Where("version_id = ?", versionID).
		Order("page_number ASC").
		Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}
