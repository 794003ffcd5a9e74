package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Request documents are checked by the validator in validator.go, not by gin
// binding, so that nested field paths such as options[0].variants[1].sku can be
// reported. Prices accept a JSON number or a numeric string.

// VariantInput is one variant of a submitted option
type VariantInput struct {
	VariantID   *uuid.UUID       `json:"variant_id"`
	ClientID    string           `json:"client_id" validate:"max=100"`
	VariantName string           `json:"variant_name" validate:"required,max=200"`
	SKU         string           `json:"sku" validate:"required,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	SaleStart   *time.Time       `json:"sale_start"`
	SaleEnd     *time.Time       `json:"sale_end"`
	Media       *string          `json:"media" validate:"omitempty,max=200"`
}

// OptionInput is one option of a submitted option tree
type OptionInput struct {
	OptionID   *uuid.UUID     `json:"option_id"`
	ClientID   string         `json:"client_id" validate:"max=100"`
	OptionName string         `json:"option_name" validate:"required,max=200"`
	Variants   []VariantInput `json:"variants" validate:"dive"`
}

// MediaInput is one entry of a submitted product_media array.
// Order is accepted for compatibility but the array index always wins.
type MediaInput struct {
	MediaID string  `json:"media_id" validate:"required,max=200"`
	URL     string  `json:"url" validate:"required,max=2048"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Default bool    `json:"default"`
	Order   *int    `json:"order"`
}

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name         string           `json:"name" validate:"required,max=200"`
	SKU          string           `json:"sku" validate:"max=100"`
	Description  string           `json:"description" validate:"max=10000"`
	Price        *decimal.Decimal `json:"price" validate:"required"`
	SalePrice    *decimal.Decimal `json:"sale_price"`
	SaleStart    *time.Time       `json:"sale_start"`
	SaleEnd      *time.Time       `json:"sale_end"`
	ProductMedia []MediaInput     `json:"product_media"`
}

// UpdateProductRequest represents a partial product update.
// A nil ProductMedia leaves media untouched; a non-nil one (even empty)
// replaces the whole list.
type UpdateProductRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=200"`
	SKU          *string          `json:"sku" validate:"omitempty,max=100"`
	Description  *string          `json:"description" validate:"omitempty,max=10000"`
	Price        *decimal.Decimal `json:"price"`
	SalePrice    *decimal.Decimal `json:"sale_price"`
	SaleStart    *time.Time       `json:"sale_start"`
	SaleEnd      *time.Time       `json:"sale_end"`
	ClearSale    bool             `json:"clear_sale"`
	ProductMedia *[]MediaInput    `json:"product_media"`
}

// UpdateOptionRequest replaces one option and its variants
type UpdateOptionRequest struct {
	OptionName string         `json:"option_name" validate:"required,max=200"`
	Variants   []VariantInput `json:"variants" validate:"dive"`
}

// MediaUploadRequest asks for a presigned upload URL
type MediaUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,min=1,max=255"`
	ContentType string `json:"content_type" binding:"required,max=100"`
	FileSize    int64  `json:"file_size" binding:"required,min=1"`
}

// MediaUploadResponse carries the presigned URL and the media_id to submit
type MediaUploadResponse struct {
	MediaID    string    `json:"media_id"`
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ProductListFilter represents filter options for product list
type ProductListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=name sku price created_at updated_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// IdentityMap reports the storage IDs assigned to rows created by a write,
// keyed by the client reference they were submitted with.
type IdentityMap struct {
	Options  map[string]uuid.UUID `json:"options"`
	Variants map[string]uuid.UUID `json:"variants"`
	Media    map[string]uuid.UUID `json:"media"`
}

// NewIdentityMap returns an empty identity map
func NewIdentityMap() IdentityMap {
	return IdentityMap{
		Options:  make(map[string]uuid.UUID),
		Variants: make(map[string]uuid.UUID),
		Media:    make(map[string]uuid.UUID),
	}
}

// VariantResponse represents a variant in API responses
type VariantResponse struct {
	VariantID   uuid.UUID        `json:"variant_id"`
	VariantName string           `json:"variant_name"`
	SKU         string           `json:"sku"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	SaleStart   *time.Time       `json:"sale_start"`
	SaleEnd     *time.Time       `json:"sale_end"`
	Media       *string          `json:"media"`
	Position    int              `json:"position"`
}

// OptionResponse represents an option with its variants in API responses
type OptionResponse struct {
	OptionID   uuid.UUID         `json:"option_id"`
	OptionName string            `json:"option_name"`
	Position   int               `json:"position"`
	Variants   []VariantResponse `json:"variants"`
}

// MediaResponse represents a media item in API responses
type MediaResponse struct {
	ID      uuid.UUID `json:"id"`
	MediaID string    `json:"media_id"`
	URL     string    `json:"url"`
	Title   *string   `json:"title"`
	Default bool      `json:"default"`
	Order   int       `json:"order"`
}

// ProductResponse represents the scalar fields of a product
type ProductResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	SKU         string           `json:"sku"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"sale_price"`
	SaleStart   *time.Time       `json:"sale_start"`
	SaleEnd     *time.Time       `json:"sale_end"`
	ActivePrice decimal.Decimal  `json:"active_price"`
	Version     int              `json:"version"`
	CreatedBy   *uuid.UUID       `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProductTreeResponse is the canonical nested representation of a product.
// Its JSON field names match the request documents, so a fetched tree can be
// submitted back unchanged.
type ProductTreeResponse struct {
	ProductResponse
	Options      []OptionResponse `json:"options"`
	ProductMedia []MediaResponse  `json:"product_media"`
}

// TreeResult is returned by writes: the canonical tree after commit plus the
// identities assigned to created rows.
type TreeResult struct {
	*ProductTreeResponse
	CreatedIDs IdentityMap `json:"created_ids"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       p.Price,
		SalePrice:   p.SalePrice,
		SaleStart:   p.SaleStart,
		SaleEnd:     p.SaleEnd,
		ActivePrice: p.ActivePrice(time.Now()),
		Version:     p.Version,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of domain Products to ProductResponses
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}

// ToOptionResponse converts a domain Option to OptionResponse
func ToOptionResponse(o *catalog.Option) OptionResponse {
	resp := OptionResponse{
		OptionID:   o.ID,
		OptionName: o.Name,
		Position:   o.Position,
		Variants:   make([]VariantResponse, 0, len(o.Variants)),
	}
	for _, v := range o.Variants {
		resp.Variants = append(resp.Variants, VariantResponse{
			VariantID:   v.ID,
			VariantName: v.Name,
			SKU:         v.SKU,
			Price:       v.Price,
			SalePrice:   v.SalePrice,
			SaleStart:   v.SaleStart,
			SaleEnd:     v.SaleEnd,
			Media:       v.MediaRef,
			Position:    v.Position,
		})
	}
	return resp
}

// ToMediaResponses converts media items to MediaResponses
func ToMediaResponses(items []catalog.MediaItem) []MediaResponse {
	responses := make([]MediaResponse, 0, len(items))
	for _, m := range items {
		responses = append(responses, MediaResponse{
			ID:      m.ID,
			MediaID: m.MediaID,
			URL:     m.URL,
			Title:   m.Title,
			Default: m.IsDefault,
			Order:   m.Order,
		})
	}
	return responses
}
