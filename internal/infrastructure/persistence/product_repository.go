package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// GormProductRepository reads and writes product rows. Options, variants and
// media are handled by their own repositories.
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// matching narrows to products whose name or SKU contains the search term,
// ignoring case
func matching(filter catalog.ProductFilter) func(*gorm.DB) *gorm.DB {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	return func(db *gorm.DB) *gorm.DB {
		if term == "" {
			return db
		}
		like := "%" + term + "%"
		return db.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
}

// paged orders the result and cuts out the requested page. id breaks ties
// so consecutive pages never overlap.
func paged(filter catalog.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order(filter.OrderClause()).Order("id ASC")
		if filter.Page > 0 && filter.PageSize > 0 {
			db = db.Offset(filter.Offset()).Limit(filter.PageSize)
		}
		return db
	}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var row models.ProductModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, shared.ErrNotFound
	case err != nil:
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Scopes(matching(filter), paged(filter)).Find(&rows).Error; err != nil {
		return nil, err
	}

	products := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		products = append(products, *rows[i].ToDomain())
	}
	return products, nil
}

// Count counts every product matching the search, ignoring paging
func (r *GormProductRepository) Count(ctx context.Context, filter catalog.ProductFilter) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Scopes(matching(filter)).Count(&n).Error
	return n, err
}

// Save inserts or overwrites the product row alone. Updates of an existing
// product go through Update or Touch.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).
		Omit("Options", "Media").
		Save(models.ProductModelFromDomain(product)).Error
}

// Update writes the product's scalar columns and bumps the stored version.
// Option and media rows are left alone.
func (r *GormProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	m := models.ProductModelFromDomain(product)
	return r.bump(ctx, product, map[string]any{
		"name":        m.Name,
		"sku":         m.SKU,
		"description": m.Description,
		"price":       m.Price,
		"sale_price":  m.SalePrice,
		"sale_start":  m.SaleStart,
		"sale_end":    m.SaleEnd,
	})
}

// Touch marks a write below the product. Only version and updated_at change,
// so scalar fields committed meanwhile by another request are kept.
func (r *GormProductRepository) Touch(ctx context.Context, product *catalog.Product) error {
	return r.bump(ctx, product, map[string]any{})
}

// bump writes columns together with version = version + 1, then copies the
// stored version back onto product. The increment is evaluated against the
// row as committed, so concurrent writers never lose a bump.
func (r *GormProductRepository) bump(ctx context.Context, product *catalog.Product, columns map[string]any) error {
	db := r.db.WithContext(ctx)
	now := time.Now().UTC()
	columns["version"] = gorm.Expr("version + 1")
	columns["updated_at"] = now

	res := db.Model(&models.ProductModel{}).Where("id = ?", product.ID).UpdateColumns(columns)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return shared.ErrNotFound
	}

	var row models.ProductModel
	if err := db.Select("version").Where("id = ?", product.ID).Take(&row).Error; err != nil {
		return err
	}
	product.Version = row.Version
	product.UpdatedAt = now
	return nil
}

// Delete removes the product; its options, variants and media go with it
// through ON DELETE CASCADE.
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductModel{})
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return shared.ErrNotFound
	}
	return nil
}
