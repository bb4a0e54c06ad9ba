package repositories

import (
	"context"
	"errors"

	"sahel/internal/models"

	"gorm.io/gorm"
)

// ErrDocumentNotFound is returned when no document matches the lookup.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository stores uploaded documents and their review state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id uint) (*models.Document, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Document, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Document, int64, error)
	Update(ctx context.Context, doc *models.Document) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a document repository.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListByUser(ctx context.Context, userID uint) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) ListPending(ctx context.Context, limit, offset int) ([]models.Document, int64, error) {
	var docs []models.Document
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("status = ?", models.DocumentStatusPending)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at ASC").Limit(limit).Offset(offset).Find(&docs).Error
	return docs, total, err
}

func (r *documentRepository) Update(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}
