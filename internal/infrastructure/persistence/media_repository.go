package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMediaRepository implements MediaRepository using GORM
type GormMediaRepository struct {
	db *gorm.DB
}

// NewGormMediaRepository creates a new GormMediaRepository
func NewGormMediaRepository(db *gorm.DB) *GormMediaRepository {
	return &GormMediaRepository{db: db}
}

// FindByProduct returns the product's media ordered by display order
func (r *GormMediaRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.MediaItem, error) {
	var mediaModels []models.ProductMediaModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("sort_order ASC").Order("id ASC").
		Find(&mediaModels).Error; err != nil {
		return nil, err
	}

	items := make([]catalog.MediaItem, len(mediaModels))
	for i := range mediaModels {
		items[i] = *mediaModels[i].ToDomain()
	}
	return items, nil
}

// Create inserts a media item
func (r *GormMediaRepository) Create(ctx context.Context, item *catalog.MediaItem) error {
	return r.db.WithContext(ctx).Create(models.ProductMediaModelFromDomain(item)).Error
}

// Update writes the mutable columns of a media item
func (r *GormMediaRepository) Update(ctx context.Context, item *catalog.MediaItem) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductMediaModel{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"url":        item.URL,
			"title":      item.Title,
			"is_default": item.IsDefault,
			"sort_order": item.Order,
			"updated_at": item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByIDs removes media items by storage ID
func (r *GormMediaRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.ProductMediaModel{}, "id IN ?", ids).Error
}

// ClearDefault unsets the default flag on all media of a product
func (r *GormMediaRepository) ClearDefault(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductMediaModel{}).
		Where("product_id = ? AND is_default = ?", productID, true).
		Update("is_default", false).Error
}

// Ensure GormMediaRepository implements MediaRepository
var _ catalog.MediaRepository = (*GormMediaRepository)(nil)
