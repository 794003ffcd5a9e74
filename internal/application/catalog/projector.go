package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
)

// Projector assembles the canonical nested representation of a product.
// Options and variants are ordered by position, creation time and ID, media
// by display order and ID, so two projections of the same state are equal.
type Projector struct{}

// NewProjector creates a new Projector
func NewProjector() *Projector {
	return &Projector{}
}

// Project reads the product with its options, variants and media
func (p *Projector) Project(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID) (*ProductTreeResponse, error) {
	product, err := repos.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	tree, err := repos.Options().FindTreeByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	media, err := repos.Media().FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return p.assemble(product, tree, media), nil
}

func (p *Projector) assemble(product *catalog.Product, tree catalog.OptionTree, media []catalog.MediaItem) *ProductTreeResponse {
	tree.Sort()
	resp := &ProductTreeResponse{
		ProductResponse: ToProductResponse(product),
		Options:         make([]OptionResponse, 0, len(tree)),
		ProductMedia:    ToMediaResponses(catalog.SortMedia(media)),
	}
	for i := range tree {
		resp.Options = append(resp.Options, ToOptionResponse(&tree[i]))
	}
	return resp
}
