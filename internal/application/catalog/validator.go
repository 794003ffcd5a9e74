package catalog

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors collects field-level problems of one document
type fieldErrors []shared.FieldError

func (fe *fieldErrors) add(field, format string, args ...any) {
	*fe = append(*fe, shared.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// check runs the struct tags of obj and records failures under prefix
func (fe *fieldErrors) check(prefix string, obj any) {
	err := validate.Struct(obj)
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fe.add(prefix, "%s", err.Error())
		return
	}
	for _, e := range verrs {
		fe.add(joinPath(prefix, stripRoot(e.Namespace())), "%s", validationMessage(e))
	}
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return shared.NewValidationError(fe...)
}

// NormalizeOptionTree validates a submitted option tree and converts it into
// the diff engine's input. Strings are trimmed and prices rounded to the
// persisted scale. Every problem in the document is reported at once, each
// with its path (e.g. options[0].variants[1].sku).
func NormalizeOptionTree(options []OptionInput) ([]catalog.SubmittedOption, error) {
	var problems fieldErrors
	out := make([]catalog.SubmittedOption, 0, len(options))

	for i := range options {
		prefix := fmt.Sprintf("options[%d]", i)
		opt := trimOption(options[i])
		problems.check(prefix, &opt)
		out = append(out, catalog.SubmittedOption{
			ID:        opt.OptionID,
			ClientRef: opt.ClientID,
			Name:      opt.OptionName,
			Variants:  normalizeVariants(prefix, opt.Variants, &problems),
		})
	}

	if err := problems.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeOptionUpdate validates the body of a direct option update
func NormalizeOptionUpdate(req UpdateOptionRequest) (string, []catalog.SubmittedVariant, error) {
	var problems fieldErrors
	req.OptionName = strings.TrimSpace(req.OptionName)
	variants := make([]VariantInput, len(req.Variants))
	for i, v := range req.Variants {
		variants[i] = trimVariant(v)
	}
	req.Variants = variants

	problems.check("", &req)
	submitted := normalizeVariants("", req.Variants, &problems)
	if err := problems.err(); err != nil {
		return "", nil, err
	}
	// new variants are reported under their place in this request, not in
	// the product's whole tree
	for j := range submitted {
		if submitted[j].ID == nil && submitted[j].ClientRef == "" {
			submitted[j].ClientRef = fmt.Sprintf("variants[%d]", j)
		}
	}
	return req.OptionName, submitted, nil
}

func normalizeVariants(prefix string, variants []VariantInput, problems *fieldErrors) []catalog.SubmittedVariant {
	out := make([]catalog.SubmittedVariant, 0, len(variants))
	for j, v := range variants {
		path := joinPath(prefix, fmt.Sprintf("variants[%d]", j))
		pricing := catalog.Pricing{SalePrice: v.SalePrice, SaleStart: v.SaleStart, SaleEnd: v.SaleEnd}
		if v.Price != nil {
			pricing.Price = *v.Price
		}
		checkPricing(path, pricing, problems)
		out = append(out, catalog.SubmittedVariant{
			ID:        v.VariantID,
			ClientRef: v.ClientID,
			Name:      v.VariantName,
			SKU:       v.SKU,
			Pricing:   pricing.Normalized(),
			MediaRef:  v.Media,
		})
	}
	return out
}

// NormalizeMediaInput validates a submitted product_media array.
// The result still carries the submitted default flags; catalog.NormalizeMedia
// applies the ordering and default rules.
func NormalizeMediaInput(items []MediaInput) ([]catalog.SubmittedMedia, error) {
	var problems fieldErrors
	out := normalizeMedia(items, &problems)
	if err := problems.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeMedia(items []MediaInput, problems *fieldErrors) []catalog.SubmittedMedia {
	out := make([]catalog.SubmittedMedia, 0, len(items))
	seen := make(map[string]int, len(items))

	for i, raw := range items {
		prefix := fmt.Sprintf("product_media[%d]", i)
		item := trimMedia(raw)
		problems.check(prefix, &item)

		if item.MediaID != "" {
			if first, dup := seen[item.MediaID]; dup {
				problems.add(prefix+".media_id", "duplicate media_id (also at product_media[%d])", first)
			} else {
				seen[item.MediaID] = i
			}
		}

		order := i
		if item.Order != nil {
			order = *item.Order
		}
		out = append(out, catalog.SubmittedMedia{
			MediaID: item.MediaID,
			URL:     item.URL,
			Title:   item.Title,
			Default: item.Default,
			Order:   order,
		})
	}
	return out
}

// ProductInput is a validated create request
type ProductInput struct {
	Name        string
	SKU         string
	Description string
	Pricing     catalog.Pricing
	Media       []catalog.SubmittedMedia
}

// NormalizeProductInput validates a create request
func NormalizeProductInput(req CreateProductRequest) (*ProductInput, error) {
	var problems fieldErrors
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)
	problems.check("", &req)

	pricing := catalog.Pricing{SalePrice: req.SalePrice, SaleStart: req.SaleStart, SaleEnd: req.SaleEnd}
	if req.Price != nil {
		pricing.Price = *req.Price
	}
	checkPricing("", pricing, &problems)

	media := normalizeMedia(req.ProductMedia, &problems)
	if err := problems.err(); err != nil {
		return nil, err
	}

	return &ProductInput{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Pricing:     pricing.Normalized(),
		Media:       media,
	}, nil
}

// ProductUpdateInput is a validated partial update
type ProductUpdateInput struct {
	Name        *string
	SKU         *string
	Description *string
	Price       *decimal.Decimal
	SalePrice   *decimal.Decimal
	SaleStart   *time.Time
	SaleEnd     *time.Time
	ClearSale   bool
	// Media is nil when the request did not carry product_media
	Media *[]catalog.SubmittedMedia
}

// HasPricing reports whether any price field is part of the update
func (in *ProductUpdateInput) HasPricing() bool {
	return in.Price != nil || in.SalePrice != nil || in.SaleStart != nil || in.SaleEnd != nil || in.ClearSale
}

// MergePricing overlays the submitted price fields on the current pricing
func (in *ProductUpdateInput) MergePricing(current catalog.Pricing) catalog.Pricing {
	merged := current
	if in.ClearSale {
		merged.SalePrice, merged.SaleStart, merged.SaleEnd = nil, nil, nil
	}
	if in.Price != nil {
		merged.Price = *in.Price
	}
	if in.SalePrice != nil {
		merged.SalePrice = in.SalePrice
	}
	if in.SaleStart != nil {
		merged.SaleStart = in.SaleStart
	}
	if in.SaleEnd != nil {
		merged.SaleEnd = in.SaleEnd
	}
	return merged.Normalized()
}

// NormalizeProductUpdate validates a partial update request
func NormalizeProductUpdate(req UpdateProductRequest) (*ProductUpdateInput, error) {
	var problems fieldErrors
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
		if name == "" {
			problems.add("name", "This field is required")
		}
	}
	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		req.SKU = &sku
	}
	problems.check("", &req)

	if req.Price != nil && req.Price.IsNegative() {
		problems.add("price", "Must not be negative")
	}
	if req.SalePrice != nil && req.SalePrice.IsNegative() {
		problems.add("sale_price", "Must not be negative")
	}

	in := &ProductUpdateInput{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		SaleStart:   req.SaleStart,
		SaleEnd:     req.SaleEnd,
		ClearSale:   req.ClearSale,
	}
	if req.ProductMedia != nil {
		media := normalizeMedia(*req.ProductMedia, &problems)
		in.Media = &media
	}

	if err := problems.err(); err != nil {
		return nil, err
	}
	return in, nil
}

// ValidatePricing checks a fully merged pricing
func ValidatePricing(pricing catalog.Pricing) error {
	var problems fieldErrors
	checkPricing("", pricing, &problems)
	return problems.err()
}

func checkPricing(prefix string, p catalog.Pricing, problems *fieldErrors) {
	if p.Price.IsNegative() {
		problems.add(joinPath(prefix, "price"), "Must not be negative")
	}
	if p.SalePrice != nil && p.SalePrice.IsNegative() {
		problems.add(joinPath(prefix, "sale_price"), "Must not be negative")
	}
	if p.SaleStart != nil && p.SaleEnd != nil && p.SaleEnd.Before(*p.SaleStart) {
		problems.add(joinPath(prefix, "sale_end"), "Must not be before sale_start")
	}
}

func trimOption(o OptionInput) OptionInput {
	o.ClientID = strings.TrimSpace(o.ClientID)
	o.OptionName = strings.TrimSpace(o.OptionName)
	variants := make([]VariantInput, len(o.Variants))
	for i, v := range o.Variants {
		variants[i] = trimVariant(v)
	}
	o.Variants = variants
	return o
}

func trimVariant(v VariantInput) VariantInput {
	v.ClientID = strings.TrimSpace(v.ClientID)
	v.VariantName = strings.TrimSpace(v.VariantName)
	v.SKU = strings.TrimSpace(v.SKU)
	if v.Media != nil {
		media := strings.TrimSpace(*v.Media)
		if media == "" {
			v.Media = nil
		} else {
			v.Media = &media
		}
	}
	return v
}

func trimMedia(m MediaInput) MediaInput {
	m.MediaID = strings.TrimSpace(m.MediaID)
	m.URL = strings.TrimSpace(m.URL)
	if m.Title != nil {
		title := strings.TrimSpace(*m.Title)
		if title == "" {
			m.Title = nil
		} else {
			m.Title = &title
		}
	}
	return m
}

// stripRoot drops the struct type name validator puts first in a namespace
func stripRoot(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func joinPath(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	default:
		return "Invalid value"
	}
}
