package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindAll finds all products matching the filter
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)

	// Count counts products matching the filter
	Count(ctx context.Context, filter ProductFilter) (int64, error)

	// Save creates a product
	Save(ctx context.Context, product *Product) error

	// Update writes the scalar fields and bumps the stored version
	Update(ctx context.Context, product *Product) error

	// Touch bumps the stored version and update time without writing any
	// other column, then copies both back onto product
	Touch(ctx context.Context, product *Product) error

	// Delete deletes a product; options, variants and media are removed with it
	Delete(ctx context.Context, id uuid.UUID) error
}

// OptionRepository persists options and loads option trees
type OptionRepository interface {
	// FindTreeByProduct loads every option of a product with its variants, sorted
	FindTreeByProduct(ctx context.Context, productID uuid.UUID) (OptionTree, error)

	// FindByID loads one option with its variants
	FindByID(ctx context.Context, id uuid.UUID) (*Option, error)

	Create(ctx context.Context, option *Option) error
	Update(ctx context.Context, option *Option) error

	// Delete removes an option together with its variants
	Delete(ctx context.Context, id uuid.UUID) error
}

// VariantRepository persists variants
type VariantRepository interface {
	Create(ctx context.Context, variant *Variant) error
	Update(ctx context.Context, variant *Variant) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ClearMediaRefs unsets media references of the product's variants that
	// point at any of the given client media IDs
	ClearMediaRefs(ctx context.Context, productID uuid.UUID, mediaIDs []string) error
}

// MediaRepository persists product media items
type MediaRepository interface {
	// FindByProduct returns the product's media ordered by display order
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]MediaItem, error)

	Create(ctx context.Context, item *MediaItem) error
	Update(ctx context.Context, item *MediaItem) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error

	// ClearDefault unsets the default flag on all media of a product
	ClearDefault(ctx context.Context, productID uuid.UUID) error
}
