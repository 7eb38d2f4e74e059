package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/medbill/backend/internal/domain/billing"
	"github.com/medbill/backend/internal/domain/shared"
	"github.com/medbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUploadRepository implements billing.UploadRepository using GORM
type GormUploadRepository struct {
	db *gorm.DB
}

// NewGormUploadRepository creates a new GormUploadRepository
func NewGormUploadRepository(db *gorm.DB) *GormUploadRepository {
	return &GormUploadRepository{db: db}
}

// FindByID finds an upload by ID
func (r *GormUploadRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Upload, error) {
	var model models.UploadModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds uploads with pagination, newest first by default
func (r *GormUploadRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Upload, error) {
	var uploadModels []models.UploadModel

	query := r.db.WithContext(ctx).Model(&models.UploadModel{})
	if filter.Search != "" {
		query = query.Where("file_name LIKE ?", "%"+filter.Search+"%")
	}

	sortBy := ValidateSortField(filter.OrderBy, UploadSortFields, "uploaded_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortBy + " " + sortOrder)

	limit := filter.PageSize
	if limit < 1 {
		limit = 20
	}
	if err := query.Offset(filter.Offset()).Limit(limit).Find(&uploadModels).Error; err != nil {
		return nil, err
	}

	uploads := make([]billing.Upload, len(uploadModels))
	for i := range uploadModels {
		uploads[i] = *uploadModels[i].ToDomain()
	}
	return uploads, nil
}

// Count counts stored uploads
func (r *GormUploadRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.UploadModel{})
	if filter.Search != "" {
		query = query.Where("file_name LIKE ?", "%"+filter.Search+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an upload record
func (r *GormUploadRepository) Save(ctx context.Context, upload *billing.Upload) error {
	model := models.UploadModelFromDomain(upload)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes an upload record
func (r *GormUploadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.UploadModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormUploadRepository implements UploadRepository
var _ billing.UploadRepository = (*GormUploadRepository)(nil)
