package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/shopdesk/backoffice/internal/application/catalog"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
)

// ProductCatalog is the application surface the product endpoints call
type ProductCatalog interface {
	Create(ctx context.Context, actorID uuid.UUID, req catalogapp.CreateProductRequest) (*catalogapp.TreeResult, error)
	Get(ctx context.Context, productID uuid.UUID) (*catalogapp.ProductTreeResponse, error)
	List(ctx context.Context, filter catalogapp.ProductListFilter) ([]catalogapp.ProductResponse, int64, error)
	Update(ctx context.Context, actorID, productID uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.TreeResult, error)
	Delete(ctx context.Context, actorID, productID uuid.UUID) error
	SyncOptions(ctx context.Context, actorID, productID uuid.UUID, options []catalogapp.OptionInput) (*catalogapp.TreeResult, error)
	GetOptions(ctx context.Context, productID uuid.UUID) ([]catalogapp.OptionResponse, error)
	GetOption(ctx context.Context, optionID uuid.UUID) (*catalogapp.OptionResponse, error)
	UpdateOption(ctx context.Context, actorID, optionID uuid.UUID, req catalogapp.UpdateOptionRequest) (*catalogapp.TreeResult, error)
	DeleteOption(ctx context.Context, actorID, optionID uuid.UUID) error
	RequestMediaUpload(ctx context.Context, productID uuid.UUID, req catalogapp.MediaUploadRequest) (*catalogapp.MediaUploadResponse, error)
}

// ProductHandler handles product catalog endpoints
type ProductHandler struct {
	BaseHandler
	catalog ProductCatalog
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog ProductCatalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// productID parses the :id path parameter and tags the request context with it
func (h *ProductHandler) productID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := h.pathUUID(c, "id")
	if ok {
		c.Request = c.Request.WithContext(logger.WithProductID(c.Request.Context(), id.String()))
	}
	return id, ok
}

// Create godoc
// @Summary      Create a product
// @Description  Create a product, optionally with its ordered product_media list
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateProductRequest true "Product"
// @Success      201 {object} dto.Response{data=catalogapp.TreeResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.catalog.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get godoc
// @Summary      Get a product
// @Description  Returns the canonical product tree: scalar fields, options with variants and media
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.ProductTreeResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	tree, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// List godoc
// @Summary      List products
// @Description  Paginated product list, searchable by name or SKU
// @Tags         products
// @Produce      json
// @Param        search query string false "Name or SKU fragment"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        order_by query string false "Sort field" Enums(name, sku, price, created_at, updated_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]catalogapp.ProductResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	products, total, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	defaults := catalog.DefaultProductFilter()
	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = defaults.Page
	}
	if pageSize < 1 {
		pageSize = defaults.PageSize
	}
	h.SuccessWithMeta(c, products, total, page, pageSize)
}

// Update godoc
// @Summary      Update a product
// @Description  Partial update of scalar fields. A present product_media array replaces the whole media list;
// @Description  array order becomes display order and exactly one item ends up default.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.UpdateProductRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=catalogapp.TreeResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.catalog.Update(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete godoc
// @Summary      Delete a product
// @Description  Deletes the product with its options, variants and media
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.productID(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), actorID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SyncOptions godoc
// @Summary      Replace a product's option tree
// @Description  The submitted array is the complete desired option tree. Entries with option_id or variant_id
// @Description  update existing rows, entries without one are created, and existing rows not mentioned are deleted.
// @Description  The response carries the tree after commit and created_ids keyed by client_id.
// @Tags         options
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body []catalogapp.OptionInput true "Desired option tree"
// @Success      200 {object} dto.Response{data=catalogapp.TreeResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/options [put]
func (h *ProductHandler) SyncOptions(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var options []catalogapp.OptionInput
	if !h.bindJSON(c, &options) {
		return
	}
	if options == nil {
		// a JSON null is not an empty tree; only [] removes every option
		h.HandleError(c, shared.NewValidationError(shared.FieldError{Field: "options", Message: "must be an array"}))
		return
	}

	result, err := h.catalog.SyncOptions(c.Request.Context(), actorID, id, options)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetOptions godoc
// @Summary      Get a product's options
// @Tags         options
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]catalogapp.OptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/options [get]
func (h *ProductHandler) GetOptions(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	options, err := h.catalog.GetOptions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, options)
}

// GetOption godoc
// @Summary      Get one option
// @Tags         options
// @Produce      json
// @Param        id path string true "Option ID" format(uuid)
// @Success      200 {object} dto.Response{data=catalogapp.OptionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /options/{id} [get]
func (h *ProductHandler) GetOption(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	option, err := h.catalog.GetOption(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, option)
}

// UpdateOption godoc
// @Summary      Replace one option
// @Description  Renames the option and reconciles its variants; the product's other options are untouched
// @Tags         options
// @Accept       json
// @Produce      json
// @Param        id path string true "Option ID" format(uuid)
// @Param        request body catalogapp.UpdateOptionRequest true "Option"
// @Success      200 {object} dto.Response{data=catalogapp.TreeResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /options/{id} [put]
func (h *ProductHandler) UpdateOption(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateOptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.catalog.UpdateOption(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DeleteOption godoc
// @Summary      Delete one option
// @Tags         options
// @Param        id path string true "Option ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /options/{id} [delete]
func (h *ProductHandler) DeleteOption(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteOption(c.Request.Context(), actorID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RequestMediaUpload godoc
// @Summary      Get a presigned media upload URL
// @Description  Returns a short-lived PUT URL plus the media_id and url to submit in product_media afterwards
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.MediaUploadRequest true "Upload description"
// @Success      200 {object} dto.Response{data=catalogapp.MediaUploadResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /products/{id}/media/upload-url [post]
func (h *ProductHandler) RequestMediaUpload(c *gin.Context) {
	id, ok := h.productID(c)
	if !ok {
		return
	}
	var req catalogapp.MediaUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.catalog.RequestMediaUpload(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
