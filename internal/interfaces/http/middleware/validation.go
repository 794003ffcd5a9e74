package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
)

// SetupValidator makes gin's binding validator report JSON field names
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
	}
}

// BindError is a classified request decoding failure
type BindError struct {
	Code    string
	Message string
	Details []dto.ErrorDetail
}

// Status returns the HTTP status for the error code
func (e BindError) Status() int {
	return dto.GetHTTPStatus(e.Code)
}

// ClassifyBodyError maps an error from ShouldBindJSON onto the error taxonomy.
// Malformed JSON is a 400, a well-formed document with wrong types or values
// is a 422 and an oversize body is a 413.
func ClassifyBodyError(err error) BindError {
	var (
		maxBytes  *http.MaxBytesError
		syntax    *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		validErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &maxBytes):
		return BindError{Code: dto.ErrCodeRequestTooLarge, Message: "Request body exceeds maximum allowed size"}
	case errors.Is(err, io.EOF):
		return BindError{Code: dto.ErrCodeInvalidJSON, Message: "Request body is empty"}
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return BindError{Code: dto.ErrCodeInvalidJSON, Message: "Request body is not valid JSON"}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return BindError{
			Code:    dto.ErrCodeValidation,
			Message: "Request validation failed",
			Details: []dto.ErrorDetail{{Field: field, Message: "Must be of type " + typeErr.Type.String()}},
		}
	case errors.As(err, &validErrs):
		return BindError{
			Code:    dto.ErrCodeValidation,
			Message: "Request validation failed",
			Details: validationDetails(validErrs),
		}
	default:
		// custom unmarshalers (uuid, decimal, time) reject values this way
		return BindError{
			Code:    dto.ErrCodeValidation,
			Message: "Request validation failed",
			Details: []dto.ErrorDetail{{Field: "body", Message: err.Error()}},
		}
	}
}

// ClassifyQueryError maps an error from ShouldBindQuery or ShouldBindUri.
// Bad query and path parameters are client errors, never 422.
func ClassifyQueryError(err error) BindError {
	var validErrs validator.ValidationErrors
	if errors.As(err, &validErrs) {
		return BindError{Code: dto.ErrCodeBadRequest, Message: "Invalid query parameters", Details: validationDetails(validErrs)}
	}
	return BindError{Code: dto.ErrCodeBadRequest, Message: "Invalid query parameters: " + err.Error()}
}

// HandleBindError writes the classified error response
func HandleBindError(c *gin.Context, be BindError) {
	resp := dto.NewErrorResponseWithRequestID(be.Code, be.Message, GetRequestID(c))
	resp.Error.Details = be.Details
	c.AbortWithStatusJSON(be.Status(), resp)
}

func validationDetails(errs validator.ValidationErrors) []dto.ErrorDetail {
	details := make([]dto.ErrorDetail, 0, len(errs))
	for _, e := range errs {
		details = append(details, dto.ErrorDetail{
			Field:   fieldPath(e.Namespace()),
			Message: getValidationMessage(e),
		})
	}
	return details
}

// fieldPath drops the root struct name from a validator namespace:
// "MediaUploadRequest.file_name" becomes "file_name".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "url":
		return "Invalid URL format"
	default:
		return "Invalid value"
	}
}
