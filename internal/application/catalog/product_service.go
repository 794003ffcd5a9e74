package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Reconciliation targets reported to metrics
const (
	TargetOptions = "options"
	TargetMedia   = "media"
)

// MetricsRecorder receives the outcome of every reconciliation
type MetricsRecorder interface {
	RecordReconciliation(ctx context.Context, target string, operations int, err error)
}

// ProductService handles product catalog operations. Every write reads the
// current state, computes a plan and applies it inside one transaction; the
// response is projected from the same transaction after the writes.
type ProductService struct {
	scope     TransactionScope
	writer    *Writer
	projector *Projector
	logger    *zap.Logger
	metrics   MetricsRecorder
	uploads   *MediaUploader
}

// NewProductService creates a new ProductService
func NewProductService(scope TransactionScope, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		scope:     scope,
		writer:    NewWriter(),
		projector: NewProjector(),
		logger:    logger,
	}
}

// SetMetrics sets the recorder for reconciliation metrics
func (s *ProductService) SetMetrics(metrics MetricsRecorder) {
	s.metrics = metrics
}

// SetMediaUploader enables presigned media uploads
func (s *ProductService) SetMediaUploader(uploader *MediaUploader) {
	s.uploads = uploader
}

// Create creates a product, optionally with its media list
func (s *ProductService) Create(ctx context.Context, actorID uuid.UUID, req CreateProductRequest) (*TreeResult, error) {
	ctx, span := telemetry.Start(ctx, "catalog", "create_product")
	defer span.End()

	input, err := NormalizeProductInput(req)
	if err != nil {
		return nil, err
	}
	product, err := catalog.NewProduct(input.Name, input.SKU, input.Description, input.Pricing, actorID)
	if err != nil {
		return nil, err
	}

	result := &TreeResult{CreatedIDs: NewIdentityMap()}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		if len(input.Media) > 0 {
			normalized := catalog.NormalizeMedia(input.Media)
			plan := catalog.DiffMedia(nil, normalized)
			if err := s.writer.ApplyMediaPlan(ctx, repos, product.ID, plan, &result.CreatedIDs); err != nil {
				return err
			}
		}
		if err := repos.Events().Record(ctx, product.GetDomainEvents()...); err != nil {
			return err
		}
		tree, err := s.projector.Project(ctx, repos, product.ID)
		result.ProductTreeResponse = tree
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	product.ClearDomainEvents()

	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
		zap.Int("media", len(input.Media)),
	)
	return result, nil
}

// Get returns the canonical tree of a product
func (s *ProductService) Get(ctx context.Context, productID uuid.UUID) (*ProductTreeResponse, error) {
	var tree *ProductTreeResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tree, err = s.projector.Project(ctx, repos, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// List retrieves products with filtering and pagination
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	domainFilter := catalog.DefaultProductFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = min(filter.PageSize, catalog.MaxPageSize)
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	var (
		products []catalog.Product
		total    int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if products, err = repos.Products().FindAll(ctx, domainFilter); err != nil {
			return err
		}
		total, err = repos.Products().Count(ctx, domainFilter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// Update applies a partial update to the product's scalar fields and, when
// product_media is present, replaces its media list.
func (s *ProductService) Update(ctx context.Context, actorID, productID uuid.UUID, req UpdateProductRequest) (*TreeResult, error) {
	ctx, span := telemetry.Start(ctx, "catalog", "update_product",
		telemetry.AttrProductID.String(productID.String()))
	defer span.End()

	input, err := NormalizeProductUpdate(req)
	if err != nil {
		return nil, err
	}

	var (
		product      *catalog.Product
		mediaPlan    catalog.MediaPlan
		mediaChanged bool
		mediaSummary catalog.MediaSummary
	)
	result := &TreeResult{CreatedIDs: NewIdentityMap()}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if product, err = repos.Products().FindByID(ctx, productID); err != nil {
			return err
		}

		changes := catalog.ProductChanges{Name: input.Name, SKU: input.SKU, Description: input.Description}
		if input.HasPricing() {
			merged := input.MergePricing(product.Pricing)
			if err := ValidatePricing(merged); err != nil {
				return err
			}
			changes.Pricing = &merged
		}
		changed, err := product.Update(changes, actorID)
		if err != nil {
			return err
		}

		if input.Media != nil {
			current, err := repos.Media().FindByProduct(ctx, productID)
			if err != nil {
				return err
			}
			normalized := catalog.NormalizeMedia(*input.Media)
			mediaPlan = catalog.DiffMedia(current, normalized)
			if !mediaPlan.IsEmpty() {
				if err := s.writer.ApplyMediaPlan(ctx, repos, productID, mediaPlan, &result.CreatedIDs); err != nil {
					return err
				}
				mediaChanged = true
				mediaSummary = mediaPlan.Summarize(normalized)
			}
		}

		// a media-only update must not write back scalars it never carried
		switch {
		case changed:
			err = repos.Products().Update(ctx, product)
		case mediaChanged:
			err = repos.Products().Touch(ctx, product)
		}
		if err != nil {
			return err
		}
		if mediaChanged {
			product.RecordMediaReplaced(mediaSummary, actorID)
		}
		if changed || mediaChanged {
			if err := repos.Events().Record(ctx, product.GetDomainEvents()...); err != nil {
				return err
			}
		}

		tree, err := s.projector.Project(ctx, repos, productID)
		result.ProductTreeResponse = tree
		return err
	})
	if input.Media != nil {
		s.recordMetrics(ctx, TargetMedia, len(mediaPlan.Deletes)+len(mediaPlan.Updates)+len(mediaPlan.Creates), err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	product.ClearDomainEvents()
	return result, nil
}

// Delete deletes a product together with its options, variants and media
func (s *ProductService) Delete(ctx context.Context, actorID, productID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		product.MarkDeleted(actorID)
		if err := repos.Products().Delete(ctx, productID); err != nil {
			return err
		}
		return repos.Events().Record(ctx, product.GetDomainEvents()...)
	})
}

// SyncOptions reconciles the product's option tree with the submitted one.
// Existing IDs are preserved, rows missing from the submission are deleted and
// rows without ID are created. Either every operation commits or none does.
func (s *ProductService) SyncOptions(ctx context.Context, actorID, productID uuid.UUID, options []OptionInput) (*TreeResult, error) {
	submitted, err := NormalizeOptionTree(options)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, actorID, productID, func(tree catalog.OptionTree) ([]catalog.SubmittedOption, error) {
		return submitted, nil
	})
}

// GetOptions returns the product's option tree
func (s *ProductService) GetOptions(ctx context.Context, productID uuid.UUID) ([]OptionResponse, error) {
	tree, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return tree.Options, nil
}

// GetOption returns one option with its variants
func (s *ProductService) GetOption(ctx context.Context, optionID uuid.UUID) (*OptionResponse, error) {
	var option *catalog.Option
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		option, err = repos.Options().FindByID(ctx, optionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToOptionResponse(option)
	return &resp, nil
}

// UpdateOption replaces the name and variants of one option addressed by its
// ID. The rest of the product's tree is left as persisted.
func (s *ProductService) UpdateOption(ctx context.Context, actorID, optionID uuid.UUID, req UpdateOptionRequest) (*TreeResult, error) {
	name, variants, err := NormalizeOptionUpdate(req)
	if err != nil {
		return nil, err
	}
	productID, err := s.productOfOption(ctx, optionID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, actorID, productID, func(tree catalog.OptionTree) ([]catalog.SubmittedOption, error) {
		submitted := tree.ToSubmitted()
		for i := range submitted {
			if *submitted[i].ID == optionID {
				submitted[i].Name = name
				submitted[i].Variants = variants
				return submitted, nil
			}
		}
		// deleted or moved since it was looked up
		return nil, shared.ErrNotFound
	})
}

// DeleteOption deletes one option with its variants. Later options move up
// one position.
func (s *ProductService) DeleteOption(ctx context.Context, actorID, optionID uuid.UUID) error {
	productID, err := s.productOfOption(ctx, optionID)
	if err != nil {
		return err
	}
	_, err = s.reconcile(ctx, actorID, productID, func(tree catalog.OptionTree) ([]catalog.SubmittedOption, error) {
		submitted := tree.ToSubmitted()
		for i := range submitted {
			if *submitted[i].ID == optionID {
				return append(submitted[:i], submitted[i+1:]...), nil
			}
		}
		return nil, shared.ErrNotFound
	})
	return err
}

// RequestMediaUpload returns a presigned URL for uploading a new media object
func (s *ProductService) RequestMediaUpload(ctx context.Context, productID uuid.UUID, req MediaUploadRequest) (*MediaUploadResponse, error) {
	if s.uploads == nil {
		return nil, shared.NewDomainError("SERVICE_UNAVAILABLE", "Media uploads are not configured")
	}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		_, err := repos.Products().FindByID(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.uploads.PresignUpload(ctx, productID, req)
}

func (s *ProductService) productOfOption(ctx context.Context, optionID uuid.UUID) (uuid.UUID, error) {
	var productID uuid.UUID
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		option, err := repos.Options().FindByID(ctx, optionID)
		if err != nil {
			return err
		}
		productID = option.ProductID
		return nil
	})
	return productID, err
}

// reconcile runs one option-tree reconciliation in a single transaction.
// build derives the submitted document from the persisted tree, which is read
// inside the same transaction as the writes.
func (s *ProductService) reconcile(
	ctx context.Context,
	actorID, productID uuid.UUID,
	build func(tree catalog.OptionTree) ([]catalog.SubmittedOption, error),
) (*TreeResult, error) {
	ctx, span := telemetry.Start(ctx, "catalog", "reconcile_options",
		telemetry.AttrProductID.String(productID.String()))
	defer span.End()

	var plan *catalog.Plan
	result := &TreeResult{CreatedIDs: NewIdentityMap()}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		tree, err := repos.Options().FindTreeByProduct(ctx, productID)
		if err != nil {
			return err
		}
		submitted, err := build(tree)
		if err != nil {
			return err
		}
		media, err := repos.Media().FindByProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := catalog.CheckMediaRefs(submitted, media); err != nil {
			return err
		}

		plan, err = catalog.Reconcile(productID, tree, submitted)
		if err != nil {
			return err
		}
		span.AddEvent("plan_computed", trace.WithAttributes(
			telemetry.AttrPlanOperations.Int(len(plan.Operations))))

		if !plan.IsEmpty() {
			if err := s.writer.ApplyOptionPlan(ctx, repos, plan, &result.CreatedIDs); err != nil {
				return err
			}
			if err := repos.Products().Touch(ctx, product); err != nil {
				return err
			}
			product.RecordOptionsReconciled(plan.Summary(), actorID)
			if err := repos.Events().Record(ctx, product.GetDomainEvents()...); err != nil {
				return err
			}
		}

		projected, err := s.projector.Project(ctx, repos, productID)
		result.ProductTreeResponse = projected
		return err
	})

	operations := 0
	if plan != nil {
		operations = len(plan.Operations)
	}
	s.recordMetrics(ctx, TargetOptions, operations, err)
	if err != nil {
		telemetry.RecordError(span, err)
		if !isClientError(err) {
			s.logger.Error("option reconciliation failed",
				zap.String("product_id", productID.String()),
				zap.Int("operations", operations),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if operations > 0 {
		s.logger.Info("options reconciled",
			zap.String("product_id", productID.String()),
			zap.Stringer("plan", plan),
			zap.Any("summary", plan.Summary()),
		)
	}
	return result, nil
}

func (s *ProductService) recordMetrics(ctx context.Context, target string, operations int, err error) {
	if s.metrics != nil {
		s.metrics.RecordReconciliation(ctx, target, operations, err)
	}
}

// isClientError reports errors caused by the submitted document
func isClientError(err error) bool {
	return shared.IsCode(err, shared.CodeValidation) ||
		shared.IsCode(err, shared.CodeUnknownReference) ||
		errors.Is(err, shared.ErrNotFound)
}
