package catalog

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// Option is a named axis of variation of a product (e.g. "Color").
// It belongs to exactly one product and owns its variants.
type Option struct {
	shared.BaseEntity
	ProductID uuid.UUID
	Name      string
	Position  int
	Variants  []Variant
}

// Variant is one value of an option (e.g. "Red") with its own SKU and pricing.
// MediaRef optionally points at the client media_id of one of the product's media items.
type Variant struct {
	shared.BaseEntity
	OptionID uuid.UUID
	Name     string
	SKU      string
	Pricing
	MediaRef *string
	Position int
}

// VariantValues are the client-controlled fields of a variant
type VariantValues struct {
	Name     string
	SKU      string
	Pricing  Pricing
	MediaRef *string
	Position int
}

// Values returns the client-controlled fields of the variant
func (v *Variant) Values() VariantValues {
	return VariantValues{
		Name:     v.Name,
		SKU:      v.SKU,
		Pricing:  v.Pricing,
		MediaRef: v.MediaRef,
		Position: v.Position,
	}
}

// Apply copies values onto the variant
func (v *Variant) Apply(values VariantValues) {
	v.Name = values.Name
	v.SKU = values.SKU
	v.Pricing = values.Pricing
	v.MediaRef = values.MediaRef
	v.Position = values.Position
}

// Equal reports whether both value sets are identical
func (vv VariantValues) Equal(o VariantValues) bool {
	return vv.Name == o.Name &&
		vv.SKU == o.SKU &&
		vv.Position == o.Position &&
		vv.Pricing.Equal(o.Pricing) &&
		stringPtrEqual(vv.MediaRef, o.MediaRef)
}

// OptionTree is the persisted option/variant tree of one product
type OptionTree []Option

// Sort orders options and their variants by position, then creation time, then ID.
// The projector and the diff engine both rely on this ordering.
func (t OptionTree) Sort() {
	sort.SliceStable(t, func(i, j int) bool {
		return entityLess(t[i].Position, t[j].Position, t[i].BaseEntity, t[j].BaseEntity)
	})
	for i := range t {
		vs := t[i].Variants
		sort.SliceStable(vs, func(a, b int) bool {
			return entityLess(vs[a].Position, vs[b].Position, vs[a].BaseEntity, vs[b].BaseEntity)
		})
	}
}

// FindOption returns the option with the given ID
func (t OptionTree) FindOption(id uuid.UUID) (*Option, bool) {
	for i := range t {
		if t[i].ID == id {
			return &t[i], true
		}
	}
	return nil, false
}

// VariantCount returns the number of variants across all options
func (t OptionTree) VariantCount() int {
	n := 0
	for _, o := range t {
		n += len(o.Variants)
	}
	return n
}

// ToSubmitted converts the persisted tree into the document a client would
// submit to keep it unchanged.
func (t OptionTree) ToSubmitted() []SubmittedOption {
	out := make([]SubmittedOption, 0, len(t))
	for _, o := range t {
		id := o.ID
		so := SubmittedOption{ID: &id, Name: o.Name, Variants: make([]SubmittedVariant, 0, len(o.Variants))}
		for _, v := range o.Variants {
			vid := v.ID
			so.Variants = append(so.Variants, SubmittedVariant{
				ID:       &vid,
				Name:     v.Name,
				SKU:      v.SKU,
				Pricing:  v.Pricing,
				MediaRef: v.MediaRef,
			})
		}
		out = append(out, so)
	}
	return out
}

func entityLess(pi, pj int, ei, ej shared.BaseEntity) bool {
	if pi != pj {
		return pi < pj
	}
	if !ei.CreatedAt.Equal(ej.CreatedAt) {
		return ei.CreatedAt.Before(ej.CreatedAt)
	}
	return ei.ID.String() < ej.ID.String()
}
