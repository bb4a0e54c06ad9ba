package repositories

import (
	"context"
	"errors"

	"sahel/internal/models"

	"gorm.io/gorm"
)

// ErrNoOpenSignature is returned when an applicant has no unsigned request.
var ErrNoOpenSignature = errors.New("no open signature request")

// SignatureRepository stores e-signature requests.
type SignatureRepository interface {
	// Open returns the applicant's unsigned request, if any.
	Open(ctx context.Context, userID uint) (*models.ESignature, error)
	// Create inserts a new request. The partial unique index makes a
	// second concurrent insert fail with gorm.ErrDuplicatedKey.
	Create(ctx context.Context, sig *models.ESignature) error
	Update(ctx context.Context, sig *models.ESignature) error
	// LatestByUser returns the most recent request regardless of state.
	LatestByUser(ctx context.Context, userID uint) (*models.ESignature, error)
}

type signatureRepository struct {
	db *gorm.DB
}

// NewSignatureRepository creates a signature repository.
func NewSignatureRepository(db *gorm.DB) SignatureRepository {
	return &signatureRepository{db: db}
}

func (r *signatureRepository) Open(ctx context.Context, userID uint) (*models.ESignature, error) {
	var sig models.ESignature
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND signed_at IS NULL", userID).
		First(&sig).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenSignature
		}
		return nil, err
	}
	return &sig, nil
}

func (r *signatureRepository) Create(ctx context.Context, sig *models.ESignature) error {
	return r.db.WithContext(ctx).Create(sig).Error
}

func (r *signatureRepository) Update(ctx context.Context, sig *models.ESignature) error {
	return r.db.WithContext(ctx).Save(sig).Error
}

func (r *signatureRepository) LatestByUser(ctx context.Context, userID uint) (*models.ESignature, error) {
	var sig models.ESignature
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sig).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoOpenSignature
		}
		return nil, err
	}
	return &sig, nil
}
