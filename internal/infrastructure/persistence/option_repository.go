package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOptionRepository implements OptionRepository using GORM
type GormOptionRepository struct {
	db *gorm.DB
}

// NewGormOptionRepository creates a new GormOptionRepository
func NewGormOptionRepository(db *gorm.DB) *GormOptionRepository {
	return &GormOptionRepository{db: db}
}

// orderedVariants preloads variants by position with id as tie-breaker
func orderedVariants(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

// FindTreeByProduct loads every option of a product with its variants
func (r *GormOptionRepository) FindTreeByProduct(ctx context.Context, productID uuid.UUID) (catalog.OptionTree, error) {
	var optionModels []models.ProductOptionModel
	if err := r.db.WithContext(ctx).
		Preload("Variants", orderedVariants).
		Where("product_id = ?", productID).
		Order("position ASC").Order("id ASC").
		Find(&optionModels).Error; err != nil {
		return nil, err
	}

	tree := make(catalog.OptionTree, 0, len(optionModels))
	for i := range optionModels {
		tree = append(tree, *optionModels[i].ToDomain())
	}
	tree.Sort()
	return tree, nil
}

// FindByID loads one option with its variants
func (r *GormOptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Option, error) {
	var model models.ProductOptionModel
	if err := r.db.WithContext(ctx).
		Preload("Variants", orderedVariants).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new option row. Variants are created separately.
func (r *GormOptionRepository) Create(ctx context.Context, option *catalog.Option) error {
	model := models.ProductOptionModelFromDomain(option)
	return r.db.WithContext(ctx).Omit("Variants").Create(model).Error
}

// Update writes the option's name and position
func (r *GormOptionRepository) Update(ctx context.Context, option *catalog.Option) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductOptionModel{}).
		Where("id = ?", option.ID).
		Updates(map[string]any{
			"name":       option.Name,
			"position":   option.Position,
			"updated_at": option.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an option; its variants are removed by the foreign key
func (r *GormOptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductOptionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormOptionRepository implements OptionRepository
var _ catalog.OptionRepository = (*GormOptionRepository)(nil)
