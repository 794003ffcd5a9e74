package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
	"github.com/shopdesk/backoffice/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// getUserID returns the authenticated caller
func getUserID(c *gin.Context) (uuid.UUID, error) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return claims.UserUUID()
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeUnauthorized, message)
}

// pathUUID parses a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated caller, answering 401 when absent
func (h *BaseHandler) actor(c *gin.Context) (uuid.UUID, bool) {
	id, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body into dst and answers with the classified error
// (400, 413 or 422) on failure.
func (h *BaseHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.HandleBindError(c, middleware.ClassifyBodyError(err))
		return false
	}
	return true
}

// bindQuery decodes query parameters into dst, answering 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		middleware.HandleBindError(c, middleware.ClassifyQueryError(err))
		return false
	}
	return true
}

// HandleError converts an application error into the error envelope. Domain
// errors keep their code and field details; anything else is a logged 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("Request failed",
				zap.String("code", domainErr.Code),
				zap.Error(err))
		}
		resp := dto.NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, requestID)
		for _, d := range domainErr.Details {
			resp.Error.Details = append(resp.Error.Details, dto.ErrorDetail{Field: d.Field, Message: d.Message})
		}
		c.JSON(status, resp)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeServiceUnavailable, "Request timed out", requestID))
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}
