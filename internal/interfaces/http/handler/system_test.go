package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestHealth(t *testing.T) {
	h := NewSystemHandler("test")
	r := newTestRouter(nil)
	r.GET("/health", h.Health)

	w := doRequest(r, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReady(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	dbCheck := HealthCheck{Name: "database", Check: sqlDB.PingContext}

	t.Run("all dependencies up", func(t *testing.T) {
		r := newTestRouter(nil)
		r.GET("/ready", NewSystemHandler("test", dbCheck).Ready)

		w := doRequest(r, http.MethodGet, "/ready", "")

		require.Equal(t, http.StatusOK, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Checks["database"])
	})

	t.Run("a dependency is down", func(t *testing.T) {
		redisCheck := HealthCheck{Name: "redis", Check: func(context.Context) error {
			return errors.New("connection refused")
		}}
		r := newTestRouter(nil)
		r.GET("/ready", NewSystemHandler("test", dbCheck, redisCheck).Ready)

		w := doRequest(r, http.MethodGet, "/ready", "")

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "ok", resp.Checks["database"])
		assert.Equal(t, "connection refused", resp.Checks["redis"])
	})

	t.Run("closed database", func(t *testing.T) {
		closed, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		require.NoError(t, err)
		closedDB, err := closed.DB()
		require.NoError(t, err)
		require.NoError(t, closedDB.Close())

		r := newTestRouter(nil)
		r.GET("/ready", NewSystemHandler("test", HealthCheck{Name: "database", Check: closedDB.PingContext}).Ready)

		w := doRequest(r, http.MethodGet, "/ready", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestGetSystemInfo(t *testing.T) {
	r := newTestRouter(nil)
	r.GET("/v1/system/info", NewSystemHandler("1.4.0").GetSystemInfo)

	w := doRequest(r, http.MethodGet, "/v1/system/info", "")

	require.Equal(t, http.StatusOK, w.Code)
	var info SystemInfoResponse
	decodeResponse(t, w, &info)
	assert.Equal(t, "1.4.0", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
