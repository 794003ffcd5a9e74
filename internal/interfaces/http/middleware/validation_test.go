package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadBody struct {
	FileName string `json:"file_name" binding:"required,max=10"`
	FileSize int64  `json:"file_size" binding:"required,min=1"`
}

type pageQuery struct {
	PageSize int    `form:"page_size" binding:"omitempty,max=100"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func bindBody(t *testing.T, body string) BindError {
	t.Helper()
	SetupValidator()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst uploadBody
	err := c.ShouldBindJSON(&dst)
	require.Error(t, err)
	return ClassifyBodyError(err)
}

func TestClassifyBodyError(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		be := bindBody(t, "")
		assert.Equal(t, dto.ErrCodeInvalidJSON, be.Code)
		assert.Equal(t, http.StatusBadRequest, be.Status())
	})

	t.Run("syntax error", func(t *testing.T) {
		be := bindBody(t, `{"file_name": `)
		assert.Equal(t, dto.ErrCodeInvalidJSON, be.Code)

		be = bindBody(t, `{"file_name": "a",}`)
		assert.Equal(t, dto.ErrCodeInvalidJSON, be.Code)
	})

	t.Run("wrong type names the field", func(t *testing.T) {
		be := bindBody(t, `{"file_name": "a", "file_size": "big"}`)
		assert.Equal(t, dto.ErrCodeValidation, be.Code)
		assert.Equal(t, http.StatusUnprocessableEntity, be.Status())
		require.Len(t, be.Details, 1)
		assert.Equal(t, "file_size", be.Details[0].Field)
	})

	t.Run("binding rules use json names", func(t *testing.T) {
		be := bindBody(t, `{"file_name": "much-too-long.png"}`)
		assert.Equal(t, dto.ErrCodeValidation, be.Code)
		fields := map[string]string{}
		for _, d := range be.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 10 characters", fields["file_name"])
		assert.Equal(t, "This field is required", fields["file_size"])
	})
}

func TestClassifyQueryError(t *testing.T) {
	SetupValidator()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page_size=500&order_dir=up", nil)

	var q pageQuery
	be := ClassifyQueryError(c.ShouldBindQuery(&q))
	assert.Equal(t, dto.ErrCodeBadRequest, be.Code)
	assert.Equal(t, http.StatusBadRequest, be.Status())
	assert.Len(t, be.Details, 2)

	c.Request = httptest.NewRequest(http.MethodGet, "/?page_size=many", nil)
	be = ClassifyQueryError(c.ShouldBindQuery(&q))
	assert.Equal(t, dto.ErrCodeBadRequest, be.Code)
	assert.Empty(t, be.Details)
}

func TestHandleBindError(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var dst uploadBody
		if err := c.ShouldBindJSON(&dst); err != nil {
			HandleBindError(c, ClassifyBodyError(err))
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"file_size": 0}`))
	req.Header.Set(RequestIDHeader, "req-v")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	info := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, info.Code)
	assert.Equal(t, "req-v", info.RequestID)
	assert.NotEmpty(t, info.Details)
}
