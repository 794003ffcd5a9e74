package catalog

import (
	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated           = "ProductCreated"
	EventTypeProductUpdated           = "ProductUpdated"
	EventTypeProductDeleted           = "ProductDeleted"
	EventTypeProductOptionsReconciled = "ProductOptionsReconciled"
	EventTypeProductMediaReplaced     = "ProductMediaReplaced"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product, actorID uuid.UUID) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID, actorID),
		ProductID:       product.ID,
		Name:            product.Name,
		SKU:             product.SKU,
		Price:           product.Price,
	}
}

// ProductUpdatedEvent is published when scalar product fields change
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Version   int             `json:"version"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(product *Product, actorID uuid.UUID) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, product.ID, actorID),
		ProductID:       product.ID,
		Name:            product.Name,
		SKU:             product.SKU,
		Price:           product.Price,
		Version:         product.Version,
	}
}

// ProductDeletedEvent is published when a product and everything it owns is deleted
type ProductDeletedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
}

// NewProductDeletedEvent creates a new ProductDeletedEvent
func NewProductDeletedEvent(product *Product, actorID uuid.UUID) *ProductDeletedEvent {
	return &ProductDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductDeleted, AggregateTypeProduct, product.ID, actorID),
		ProductID:       product.ID,
		SKU:             product.SKU,
	}
}

// ProductOptionsReconciledEvent is published after an option/variant plan commits
type ProductOptionsReconciledEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID   `json:"product_id"`
	Version   int         `json:"version"`
	Summary   PlanSummary `json:"summary"`
}

// NewProductOptionsReconciledEvent creates a new ProductOptionsReconciledEvent
func NewProductOptionsReconciledEvent(product *Product, summary PlanSummary, actorID uuid.UUID) *ProductOptionsReconciledEvent {
	return &ProductOptionsReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductOptionsReconciled, AggregateTypeProduct, product.ID, actorID),
		ProductID:       product.ID,
		Version:         product.Version,
		Summary:         summary,
	}
}

// ProductMediaReplacedEvent is published after a media list replacement commits
type ProductMediaReplacedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID    `json:"product_id"`
	Version   int          `json:"version"`
	Summary   MediaSummary `json:"summary"`
}

// NewProductMediaReplacedEvent creates a new ProductMediaReplacedEvent
func NewProductMediaReplacedEvent(product *Product, summary MediaSummary, actorID uuid.UUID) *ProductMediaReplacedEvent {
	return &ProductMediaReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductMediaReplaced, AggregateTypeProduct, product.ID, actorID),
		ProductID:       product.ID,
		Version:         product.Version,
		Summary:         summary,
	}
}
