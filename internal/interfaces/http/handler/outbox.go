package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backoffice/internal/application/event"
)

// OutboxHandler exposes catalog event delivery to operators
type OutboxHandler struct {
	BaseHandler
	outbox *event.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// ListDead godoc
// @Summary      List dead-lettered events
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]event.OutboxEntryDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var filter event.OutboxFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.outbox.ListDead(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Entries, page.Total, page.Page, page.PageSize)
}

// RetryDead godoc
// @Summary      Requeue a dead-lettered event
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=event.OutboxEntryDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /system/outbox/dead/{id}/retry [post]
func (h *OutboxHandler) RetryDead(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.RetryDead(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Stats godoc
// @Summary      Outbox entry counts by status
// @Tags         outbox
// @Produce      json
// @Success      200 {object} dto.Response{data=event.OutboxStatsDTO}
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
