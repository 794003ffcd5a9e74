package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// OpKind identifies the kind of a reconciliation operation
type OpKind string

const (
	OpCreateOption  OpKind = "CreateOption"
	OpUpdateOption  OpKind = "UpdateOption"
	OpDeleteOption  OpKind = "DeleteOption"
	OpCreateVariant OpKind = "CreateVariant"
	OpUpdateVariant OpKind = "UpdateVariant"
	OpDeleteVariant OpKind = "DeleteVariant"
)

// SubmittedOption is one option of a submitted document.
// A nil ID means the option is new. ClientRef correlates new rows with the
// identities assigned on write.
type SubmittedOption struct {
	ID        *uuid.UUID
	ClientRef string
	Name      string
	Variants  []SubmittedVariant
}

// SubmittedVariant is one variant of a submitted option
type SubmittedVariant struct {
	ID        *uuid.UUID
	ClientRef string
	Name      string
	SKU       string
	Pricing   Pricing
	MediaRef  *string
}

// OptionValues are the client-controlled fields of an option
type OptionValues struct {
	Name     string
	Position int
}

// Operation is a single write of a reconciliation plan.
//
// For option operations OptionID names the persisted option (update/delete).
// For variant operations OptionID names the persisted parent option; when the
// parent is created by the same plan OptionID is uuid.Nil and OptionRef holds
// the parent's client reference instead.
type Operation struct {
	Kind      OpKind
	OptionID  uuid.UUID
	OptionRef string
	VariantID uuid.UUID
	ClientRef string
	Option    *OptionValues
	Variant   *VariantValues
	// MovedFrom is set on a CreateVariant that replaces a variant deleted
	// from another option of the same product.
	MovedFrom *uuid.UUID
}

// Plan is the ordered list of operations that makes the persisted option tree
// match a submitted document. Order: variant deletes, option deletes,
// option creates/updates, variant creates/updates.
type Plan struct {
	ProductID  uuid.UUID
	Operations []Operation
}

// IsEmpty reports whether the plan has no operations
func (p *Plan) IsEmpty() bool {
	return len(p.Operations) == 0
}

// Count returns the number of operations of the given kind
func (p *Plan) Count(kind OpKind) int {
	n := 0
	for _, op := range p.Operations {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Kinds returns the operation kinds in execution order
func (p *Plan) Kinds() []OpKind {
	kinds := make([]OpKind, len(p.Operations))
	for i, op := range p.Operations {
		kinds[i] = op.Kind
	}
	return kinds
}

// PlanSummary counts the operations of a plan by kind
type PlanSummary struct {
	OptionsCreated  int `json:"options_created"`
	OptionsUpdated  int `json:"options_updated"`
	OptionsDeleted  int `json:"options_deleted"`
	VariantsCreated int `json:"variants_created"`
	VariantsUpdated int `json:"variants_updated"`
	VariantsDeleted int `json:"variants_deleted"`
	VariantsMoved   int `json:"variants_moved"`
}

// Summary counts the plan's operations
func (p *Plan) Summary() PlanSummary {
	s := PlanSummary{
		OptionsCreated:  p.Count(OpCreateOption),
		OptionsUpdated:  p.Count(OpUpdateOption),
		OptionsDeleted:  p.Count(OpDeleteOption),
		VariantsCreated: p.Count(OpCreateVariant),
		VariantsUpdated: p.Count(OpUpdateVariant),
		VariantsDeleted: p.Count(OpDeleteVariant),
	}
	for _, op := range p.Operations {
		if op.MovedFrom != nil {
			s.VariantsMoved++
		}
	}
	return s
}

// OptionClientRef is the positional reference used for a new option without client_id
func OptionClientRef(optionIndex int) string {
	return fmt.Sprintf("options[%d]", optionIndex)
}

// VariantClientRef is the positional reference used for a new variant without client_id
func VariantClientRef(optionIndex, variantIndex int) string {
	return fmt.Sprintf("options[%d].variants[%d]", optionIndex, variantIndex)
}

type variantLocation struct {
	optionID uuid.UUID
	variant  *Variant
}

// Reconcile computes the plan that turns the persisted tree of a product into
// the submitted one. Identity decides the operation: a submitted row without ID
// is created, a row whose ID matches is updated when any value differs, and a
// persisted row missing from the submission is deleted. A variant submitted
// under a different option of the same product is moved by deleting it and
// creating a new one. Any ID that does not belong to the product rejects the
// whole submission before a single operation is produced.
func Reconcile(productID uuid.UUID, current OptionTree, submitted []SubmittedOption) (*Plan, error) {
	current.Sort()

	optionsByID := make(map[uuid.UUID]*Option, len(current))
	variantsByID := make(map[uuid.UUID]variantLocation, current.VariantCount())
	for i := range current {
		o := &current[i]
		optionsByID[o.ID] = o
		for j := range o.Variants {
			variantsByID[o.Variants[j].ID] = variantLocation{optionID: o.ID, variant: &o.Variants[j]}
		}
	}

	if err := checkReferences(submitted, optionsByID, variantsByID); err != nil {
		return nil, err
	}

	submittedOptions := make(map[uuid.UUID]int, len(submitted))
	// variant ID -> option ID it is submitted under (uuid.Nil for a new option)
	placement := make(map[uuid.UUID]uuid.UUID)
	for i, so := range submitted {
		parent := uuid.Nil
		if so.ID != nil {
			parent = *so.ID
			submittedOptions[parent] = i
		}
		for _, sv := range so.Variants {
			if sv.ID != nil {
				placement[*sv.ID] = parent
			}
		}
	}

	plan := &Plan{ProductID: productID}

	// 1. variant deletes: dropped from a kept option, or moved elsewhere
	for _, o := range current {
		_, optionKept := submittedOptions[o.ID]
		for _, v := range o.Variants {
			target, resubmitted := placement[v.ID]
			switch {
			case optionKept && !resubmitted:
				plan.Operations = append(plan.Operations, Operation{Kind: OpDeleteVariant, OptionID: o.ID, VariantID: v.ID})
			case resubmitted && target != o.ID:
				plan.Operations = append(plan.Operations, Operation{Kind: OpDeleteVariant, OptionID: o.ID, VariantID: v.ID})
			}
		}
	}

	// 2. option deletes; remaining variants go with them
	for _, o := range current {
		if _, ok := submittedOptions[o.ID]; !ok {
			plan.Operations = append(plan.Operations, Operation{Kind: OpDeleteOption, OptionID: o.ID})
		}
	}

	// 3. option creates and updates
	optionRefs := make([]string, len(submitted))
	for i, so := range submitted {
		values := &OptionValues{Name: so.Name, Position: i}
		if so.ID == nil {
			ref := so.ClientRef
			if ref == "" {
				ref = OptionClientRef(i)
			}
			optionRefs[i] = ref
			plan.Operations = append(plan.Operations, Operation{Kind: OpCreateOption, ClientRef: ref, Option: values})
			continue
		}
		existing := optionsByID[*so.ID]
		if existing.Name != so.Name || existing.Position != i {
			plan.Operations = append(plan.Operations, Operation{Kind: OpUpdateOption, OptionID: existing.ID, Option: values})
		}
	}

	// 4. variant creates and updates
	for i, so := range submitted {
		parentID := uuid.Nil
		if so.ID != nil {
			parentID = *so.ID
		}
		for j, sv := range so.Variants {
			values := &VariantValues{
				Name:     sv.Name,
				SKU:      sv.SKU,
				Pricing:  sv.Pricing,
				MediaRef: sv.MediaRef,
				Position: j,
			}

			if sv.ID != nil {
				loc := variantsByID[*sv.ID]
				if loc.optionID == parentID {
					if !loc.variant.Values().Equal(*values) {
						plan.Operations = append(plan.Operations, Operation{
							Kind:      OpUpdateVariant,
							OptionID:  parentID,
							VariantID: loc.variant.ID,
							Variant:   values,
						})
					}
					continue
				}
			}

			ref := sv.ClientRef
			if ref == "" {
				if sv.ID != nil {
					ref = sv.ID.String()
				} else {
					ref = VariantClientRef(i, j)
				}
			}
			op := Operation{
				Kind:      OpCreateVariant,
				OptionID:  parentID,
				ClientRef: ref,
				Variant:   values,
			}
			if parentID == uuid.Nil {
				op.OptionRef = optionRefs[i]
			}
			if sv.ID != nil {
				moved := *sv.ID
				op.MovedFrom = &moved
			}
			plan.Operations = append(plan.Operations, op)
		}
	}

	return plan, nil
}

// checkReferences rejects duplicate identities and IDs that do not belong to
// the product's persisted tree.
func checkReferences(submitted []SubmittedOption, options map[uuid.UUID]*Option, variants map[uuid.UUID]variantLocation) error {
	var dupes []shared.FieldError
	var unknownOptions, unknownVariants []string
	seenOptions := make(map[uuid.UUID]struct{})
	seenVariants := make(map[uuid.UUID]struct{})
	seenRefs := make(map[string]struct{})

	for i, so := range submitted {
		if so.ID != nil {
			if _, dup := seenOptions[*so.ID]; dup {
				dupes = append(dupes, shared.FieldError{Field: fmt.Sprintf("options[%d].option_id", i), Message: "duplicate option_id"})
			}
			seenOptions[*so.ID] = struct{}{}
			if _, ok := options[*so.ID]; !ok {
				unknownOptions = append(unknownOptions, so.ID.String())
			}
		}
		if so.ClientRef != "" {
			if _, dup := seenRefs[so.ClientRef]; dup {
				dupes = append(dupes, shared.FieldError{Field: fmt.Sprintf("options[%d].client_id", i), Message: "duplicate client_id"})
			}
			seenRefs[so.ClientRef] = struct{}{}
		}
		for j, sv := range so.Variants {
			if sv.ID != nil {
				if _, dup := seenVariants[*sv.ID]; dup {
					dupes = append(dupes, shared.FieldError{Field: fmt.Sprintf("options[%d].variants[%d].variant_id", i, j), Message: "duplicate variant_id"})
				}
				seenVariants[*sv.ID] = struct{}{}
				if _, ok := variants[*sv.ID]; !ok {
					unknownVariants = append(unknownVariants, sv.ID.String())
				}
			}
			if sv.ClientRef != "" {
				if _, dup := seenRefs[sv.ClientRef]; dup {
					dupes = append(dupes, shared.FieldError{Field: fmt.Sprintf("options[%d].variants[%d].client_id", i, j), Message: "duplicate client_id"})
				}
				seenRefs[sv.ClientRef] = struct{}{}
			}
		}
	}

	if len(dupes) > 0 {
		return shared.NewValidationError(dupes...)
	}
	if len(unknownOptions) > 0 {
		return shared.NewUnknownReferenceError("option", unknownOptions...)
	}
	if len(unknownVariants) > 0 {
		return shared.NewUnknownReferenceError("variant", unknownVariants...)
	}
	return nil
}

// CheckMediaRefs verifies that every variant media reference names one of the
// product's media items.
func CheckMediaRefs(submitted []SubmittedOption, media []MediaItem) error {
	known := make(map[string]struct{}, len(media))
	for _, m := range media {
		known[m.MediaID] = struct{}{}
	}
	var unknown []string
	for _, so := range submitted {
		for _, sv := range so.Variants {
			if sv.MediaRef == nil {
				continue
			}
			if _, ok := known[*sv.MediaRef]; !ok {
				unknown = append(unknown, *sv.MediaRef)
			}
		}
	}
	if len(unknown) > 0 {
		return shared.NewUnknownReferenceError("media", unknown...)
	}
	return nil
}

// String renders the plan for logs
func (p *Plan) String() string {
	parts := make([]string, 0, len(p.Operations))
	for _, op := range p.Operations {
		switch op.Kind {
		case OpCreateOption:
			parts = append(parts, fmt.Sprintf("%s(%s)", op.Kind, op.ClientRef))
		case OpUpdateOption, OpDeleteOption:
			parts = append(parts, fmt.Sprintf("%s(%s)", op.Kind, op.OptionID))
		case OpCreateVariant:
			parts = append(parts, fmt.Sprintf("%s(%s)", op.Kind, op.ClientRef))
		default:
			parts = append(parts, fmt.Sprintf("%s(%s)", op.Kind, op.VariantID))
		}
	}
	return strings.Join(parts, ", ")
}
