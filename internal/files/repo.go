package files

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/pkg/db/models"
)

// Repository persists order file attachments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, file *models.OrderFile) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error)
	Delete(ctx context.Context, id, orderID uuid.UUID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a files repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, file *models.OrderFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *repositoryImpl) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderFile, error) {
	var files []models.OrderFile
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", id, orderID).
		Delete(&models.OrderFile{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
