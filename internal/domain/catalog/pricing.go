package catalog

import (
	"time"

	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places persisted for prices
const PriceScale = 4

// Pricing holds a list price and an optional time-boxed sale price.
// It is shared by products and variants.
type Pricing struct {
	Price     decimal.Decimal
	SalePrice *decimal.Decimal
	SaleStart *time.Time
	SaleEnd   *time.Time
}

// Validate checks price ranges and the sale window
func (p Pricing) Validate() error {
	if p.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if p.SalePrice != nil && p.SalePrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Sale price cannot be negative")
	}
	if p.SaleStart != nil && p.SaleEnd != nil && p.SaleEnd.Before(*p.SaleStart) {
		return shared.NewDomainError("INVALID_SALE_WINDOW", "Sale end must not be before sale start")
	}
	return nil
}

// Equal reports whether two pricings carry the same values
func (p Pricing) Equal(o Pricing) bool {
	return p.Price.Equal(o.Price) &&
		decimalPtrEqual(p.SalePrice, o.SalePrice) &&
		timePtrEqual(p.SaleStart, o.SaleStart) &&
		timePtrEqual(p.SaleEnd, o.SaleEnd)
}

// Normalized rounds prices to PriceScale and truncates times to the
// microsecond precision the store keeps, so a projected value compares
// equal to the value it was written from.
func (p Pricing) Normalized() Pricing {
	out := Pricing{Price: p.Price.Round(PriceScale)}
	if p.SalePrice != nil {
		sp := p.SalePrice.Round(PriceScale)
		out.SalePrice = &sp
	}
	out.SaleStart = normalizeTime(p.SaleStart)
	out.SaleEnd = normalizeTime(p.SaleEnd)
	return out
}

// ActivePrice returns the sale price when at is inside the sale window
func (p Pricing) ActivePrice(at time.Time) decimal.Decimal {
	if p.SalePrice == nil {
		return p.Price
	}
	if p.SaleStart != nil && at.Before(*p.SaleStart) {
		return p.Price
	}
	if p.SaleEnd != nil && at.After(*p.SaleEnd) {
		return p.Price
	}
	return *p.SalePrice
}

func normalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Microsecond)
	return &v
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
