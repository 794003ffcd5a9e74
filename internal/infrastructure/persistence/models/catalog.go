package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate root.
type ProductModel struct {
	AggregateModel
	Name        string           `gorm:"type:varchar(200);not null"`
	SKU         string           `gorm:"column:sku;type:varchar(100);not null;default:''"`
	Description string           `gorm:"type:text;not null;default:''"`
	Price       decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice   *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SaleStart   *time.Time
	SaleEnd     *time.Time
	Options     []ProductOptionModel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Media       []ProductMediaModel  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		Name:        m.Name,
		SKU:         m.SKU,
		Description: m.Description,
		Pricing: catalog.Pricing{
			Price:     m.Price,
			SalePrice: m.SalePrice,
			SaleStart: utcPtr(m.SaleStart),
			SaleEnd:   utcPtr(m.SaleEnd),
		},
	}
	p.BaseAggregateRoot = m.Root()
	return p
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.SetRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.SKU = p.SKU
	m.Description = p.Description
	m.Price = p.Price
	m.SalePrice = p.SalePrice
	m.SaleStart = p.SaleStart
	m.SaleEnd = p.SaleEnd
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductOptionModel is the persistence model for an option of a product.
// Rows are removed with their product (ON DELETE CASCADE).
type ProductOptionModel struct {
	BaseModel
	ProductID uuid.UUID             `gorm:"type:uuid;not null;index:idx_product_options_product_position,priority:1"`
	Name      string                `gorm:"type:varchar(200);not null"`
	Position  int                   `gorm:"not null;default:0;index:idx_product_options_product_position,priority:2"`
	Variants  []ProductVariantModel `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductOptionModel) TableName() string {
	return "product_options"
}

// ToDomain converts the model, including any preloaded variants, to a domain Option.
func (m *ProductOptionModel) ToDomain() *catalog.Option {
	o := &catalog.Option{
		BaseEntity: m.Entity(),
		ProductID:  m.ProductID,
		Name:       m.Name,
		Position:   m.Position,
		Variants:   make([]catalog.Variant, 0, len(m.Variants)),
	}
	for i := range m.Variants {
		o.Variants = append(o.Variants, *m.Variants[i].ToDomain())
	}
	return o
}

// FromDomain populates the model from a domain Option. Variants are persisted
// separately and are not copied.
func (m *ProductOptionModel) FromDomain(o *catalog.Option) {
	m.SetEntity(o.BaseEntity)
	m.ProductID = o.ProductID
	m.Name = o.Name
	m.Position = o.Position
}

// ProductOptionModelFromDomain creates a new persistence model from a domain Option.
func ProductOptionModelFromDomain(o *catalog.Option) *ProductOptionModel {
	m := &ProductOptionModel{}
	m.FromDomain(o)
	return m
}

// ProductVariantModel is the persistence model for a variant of an option.
type ProductVariantModel struct {
	BaseModel
	OptionID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_product_variants_option_position,priority:1"`
	Name      string           `gorm:"type:varchar(200);not null"`
	SKU       string           `gorm:"column:sku;type:varchar(100);not null"`
	Price     decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SaleStart *time.Time
	SaleEnd   *time.Time
	MediaRef  *string `gorm:"type:varchar(200)"`
	Position  int     `gorm:"not null;default:0;index:idx_product_variants_option_position,priority:2"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain Variant.
func (m *ProductVariantModel) ToDomain() *catalog.Variant {
	return &catalog.Variant{
		BaseEntity: m.Entity(),
		OptionID:   m.OptionID,
		Name:       m.Name,
		SKU:        m.SKU,
		Pricing: catalog.Pricing{
			Price:     m.Price,
			SalePrice: m.SalePrice,
			SaleStart: utcPtr(m.SaleStart),
			SaleEnd:   utcPtr(m.SaleEnd),
		},
		MediaRef: m.MediaRef,
		Position: m.Position,
	}
}

// FromDomain populates the persistence model from a domain Variant.
func (m *ProductVariantModel) FromDomain(v *catalog.Variant) {
	m.SetEntity(v.BaseEntity)
	m.OptionID = v.OptionID
	m.Name = v.Name
	m.SKU = v.SKU
	m.Price = v.Price
	m.SalePrice = v.SalePrice
	m.SaleStart = v.SaleStart
	m.SaleEnd = v.SaleEnd
	m.MediaRef = v.MediaRef
	m.Position = v.Position
}

// ProductVariantModelFromDomain creates a new persistence model from a domain Variant.
func ProductVariantModelFromDomain(v *catalog.Variant) *ProductVariantModel {
	m := &ProductVariantModel{}
	m.FromDomain(v)
	return m
}

// ProductMediaModel is the persistence model for a media item of a product.
// A partial unique index allows at most one default per product and
// (product_id, media_id) is unique.
type ProductMediaModel struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_media_product_media_id,priority:1"`
	MediaID   string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_product_media_product_media_id,priority:2"`
	URL       string    `gorm:"column:url;type:varchar(2048);not null"`
	Title     *string   `gorm:"type:varchar(200)"`
	IsDefault bool      `gorm:"not null;default:false"`
	SortOrder int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductMediaModel) TableName() string {
	return "product_media"
}

// ToDomain converts the persistence model to a domain MediaItem.
func (m *ProductMediaModel) ToDomain() *catalog.MediaItem {
	return &catalog.MediaItem{
		BaseEntity: m.Entity(),
		ProductID:  m.ProductID,
		MediaID:    m.MediaID,
		URL:        m.URL,
		Title:      m.Title,
		IsDefault:  m.IsDefault,
		Order:      m.SortOrder,
	}
}

// FromDomain populates the persistence model from a domain MediaItem.
func (m *ProductMediaModel) FromDomain(item *catalog.MediaItem) {
	m.SetEntity(item.BaseEntity)
	m.ProductID = item.ProductID
	m.MediaID = item.MediaID
	m.URL = item.URL
	m.Title = item.Title
	m.IsDefault = item.IsDefault
	m.SortOrder = item.Order
}

// ProductMediaModelFromDomain creates a new persistence model from a domain MediaItem.
func ProductMediaModelFromDomain(item *catalog.MediaItem) *ProductMediaModel {
	m := &ProductMediaModel{}
	m.FromDomain(item)
	return m
}

// CatalogModels lists the catalog tables in dependency order
func CatalogModels() []any {
	return []any{
		&ProductModel{},
		&ProductOptionModel{},
		&ProductVariantModel{},
		&ProductMediaModel{},
		&OutboxEventModel{},
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
