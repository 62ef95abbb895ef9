package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/DocLink/internal/app/model"
	"gorm.io/gorm"
)

// ErrTokenNotFound signals that no verification token matches.
var ErrTokenNotFound = errors.New("verification token not found")

// VerificationTokenRepository defines the data access contract for OTP codes
// and long-lived email verification tokens.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *model.VerificationToken) error
	Find(ctx context.Context, token, identifier string) (*model.VerificationToken, error)
	Delete(ctx context.Context, token string) error
	DeleteByIdentifier(ctx context.Context, identifier string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type verificationTokenRepository struct {
	db *gorm.DB
}

// NewVerificationTokenRepository returns a GORM-backed VerificationTokenRepository.
func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Create(ctx context.Context, token *model.VerificationToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *verificationTokenRepository) Find(ctx context.Context, token, identifier string) (*model.VerificationToken, error) {
	var vt model.VerificationToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND identifier = ?", token, identifier).
		First(&vt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &vt, nil
}

func (r *verificationTokenRepository) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&model.VerificationToken{}).Error
}

func (r *verificationTokenRepository) DeleteByIdentifier(ctx context.Context, identifier string) (int64, error) {
	result := r.db.WithContext(ctx).Where("identifier = ?", identifier).Delete(&model.VerificationToken{})
	return result.RowsAffected, result.Error
}

func (r *verificationTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires < ?", before).Delete(&model.VerificationToken{})
	return result.RowsAffected, result.Error
}
