package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormVariantRepository implements VariantRepository using GORM
type GormVariantRepository struct {
	db *gorm.DB
}

// NewGormVariantRepository creates a new GormVariantRepository
func NewGormVariantRepository(db *gorm.DB) *GormVariantRepository {
	return &GormVariantRepository{db: db}
}

// Create inserts a new variant row
func (r *GormVariantRepository) Create(ctx context.Context, variant *catalog.Variant) error {
	return r.db.WithContext(ctx).Create(models.ProductVariantModelFromDomain(variant)).Error
}

// Update writes every value column of the variant, including its parent
// option. Columns set to NULL (sale fields, media reference) are written too.
func (r *GormVariantRepository) Update(ctx context.Context, variant *catalog.Variant) error {
	m := models.ProductVariantModelFromDomain(variant)
	result := r.db.WithContext(ctx).
		Model(&models.ProductVariantModel{}).
		Where("id = ?", variant.ID).
		Updates(map[string]any{
			"option_id":  m.OptionID,
			"name":       m.Name,
			"sku":        m.SKU,
			"price":      m.Price,
			"sale_price": m.SalePrice,
			"sale_start": m.SaleStart,
			"sale_end":   m.SaleEnd,
			"media_ref":  m.MediaRef,
			"position":   m.Position,
			"updated_at": m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a variant
func (r *GormVariantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductVariantModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClearMediaRefs unsets media references of the product's variants that point
// at any of the given media IDs
func (r *GormVariantRepository) ClearMediaRefs(ctx context.Context, productID uuid.UUID, mediaIDs []string) error {
	if len(mediaIDs) == 0 {
		return nil
	}
	options := r.db.Model(&models.ProductOptionModel{}).Select("id").Where("product_id = ?", productID)
	return r.db.WithContext(ctx).
		Model(&models.ProductVariantModel{}).
		Where("option_id IN (?) AND media_ref IN ?", options, mediaIDs).
		UpdateColumns(map[string]any{
			"media_ref":  nil,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Ensure GormVariantRepository implements VariantRepository
var _ catalog.VariantRepository = (*GormVariantRepository)(nil)
