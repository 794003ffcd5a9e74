package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// Field limits shared by the catalog entities
const (
	MaxNameLength        = 200
	MaxSKULength         = 100
	MaxDescriptionLength = 10000
	MaxURLLength         = 2048
	MaxTitleLength       = 200
)

// Product is the aggregate root of the catalog. It exclusively owns its
// options (and through them the variants) and its media items.
type Product struct {
	shared.BaseAggregateRoot
	Name        string
	SKU         string
	Description string
	Pricing
}

// NewProduct creates a new product
func NewProduct(name, sku, description string, pricing Pricing, actorID uuid.UUID) (*Product, error) {
	name = strings.TrimSpace(name)
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateProductSKU(sku); err != nil {
		return nil, err
	}
	if err := pricing.Validate(); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewAggregateRoot(actorID),
		Name:              name,
		SKU:               strings.TrimSpace(sku),
		Description:       description,
		Pricing:           pricing.Normalized(),
	}

	product.RecordEvent(NewProductCreatedEvent(product, actorID))

	return product, nil
}

// ProductChanges lists the scalar fields of an update; nil means unchanged
type ProductChanges struct {
	Name        *string
	SKU         *string
	Description *string
	Pricing     *Pricing
}

// IsEmpty reports whether no field is set
func (c ProductChanges) IsEmpty() bool {
	return c.Name == nil && c.SKU == nil && c.Description == nil && c.Pricing == nil
}

// Update applies the changes and reports whether anything differed
func (p *Product) Update(changes ProductChanges, actorID uuid.UUID) (bool, error) {
	changed := false

	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if err := validateProductName(name); err != nil {
			return false, err
		}
		if name != p.Name {
			p.Name = name
			changed = true
		}
	}
	if changes.SKU != nil {
		if err := validateProductSKU(*changes.SKU); err != nil {
			return false, err
		}
		sku := strings.TrimSpace(*changes.SKU)
		if sku != p.SKU {
			p.SKU = sku
			changed = true
		}
	}
	if changes.Description != nil && *changes.Description != p.Description {
		p.Description = *changes.Description
		changed = true
	}
	if changes.Pricing != nil {
		if err := changes.Pricing.Validate(); err != nil {
			return false, err
		}
		pricing := changes.Pricing.Normalized()
		if !pricing.Equal(p.Pricing) {
			p.Pricing = pricing
			changed = true
		}
	}

	if changed {
		p.MarkWritten()
		p.RecordEvent(NewProductUpdatedEvent(p, actorID))
	}
	return changed, nil
}

// RecordOptionsReconciled registers a committed option/variant reconciliation.
// The version bump is stored separately, see ProductRepository.Touch.
func (p *Product) RecordOptionsReconciled(summary PlanSummary, actorID uuid.UUID) {
	p.RecordEvent(NewProductOptionsReconciledEvent(p, summary, actorID))
}

// RecordMediaReplaced registers a committed media list replacement
func (p *Product) RecordMediaReplaced(summary MediaSummary, actorID uuid.UUID) {
	p.RecordEvent(NewProductMediaReplacedEvent(p, summary, actorID))
}

// MarkDeleted registers the deletion of the product and everything it owns
func (p *Product) MarkDeleted(actorID uuid.UUID) {
	p.RecordEvent(NewProductDeletedEvent(p, actorID))
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateProductSKU(sku string) error {
	if len(strings.TrimSpace(sku)) > MaxSKULength {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 100 characters")
	}
	return nil
}
