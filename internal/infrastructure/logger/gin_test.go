package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(core zapcore.Core) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "req-abc")
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	return router
}

func requestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	logs := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, logs, 1)
	return logs[0]
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusServiceUnavailable, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := newLoggedRouter(core)
			router.PUT("/v1/products/:id/options", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/v1/products/p1/options?dry=1", nil)
			router.ServeHTTP(w, req)

			entry := requestLog(t, recorded)
			assert.Equal(t, tt.level, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, "req-abc", fields["request_id"])
			assert.Equal(t, "/v1/products/:id/options", fields["route"])
			assert.Equal(t, "dry=1", fields["query"])
			assert.Equal(t, int64(tt.status), fields["status"])
		})
	}
}

func TestGinMiddleware_RequestScopedLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	router := newLoggedRouter(core)
	router.GET("/v1/products", func(c *gin.Context) {
		GetGinLogger(c).Info("from gin context")
		FromContext(c.Request.Context()).Info("from request context")
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/products", nil))

	for _, msg := range []string{"from gin context", "from request context"} {
		logs := recorded.FilterMessage(msg).All()
		require.Len(t, logs, 1, msg)
		assert.Equal(t, "req-abc", logs[0].ContextMap()["request_id"])
	}
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.NotPanics(t, func() { GetGinLogger(c).Info("noop") })
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("nil option map")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	logs := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, logs, 1)
	assert.Equal(t, "nil option map", logs[0].ContextMap()["error"])
}
