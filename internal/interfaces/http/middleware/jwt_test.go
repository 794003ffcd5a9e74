package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/infrastructure/auth"
	"github.com/shopdesk/backoffice/internal/infrastructure/config"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: expiration,
		Issuer:                "test-issuer",
	})
}

func issueToken(t *testing.T, svc *auth.JWTService, roles ...string) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, _, err := svc.IssueAccessToken(auth.IssueInput{UserID: userID, Username: "merch", Roles: roles})
	require.NoError(t, err)
	return token, userID
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(AuthHeaderKey, BearerPrefix+token) }
}

type stubBlacklist struct {
	revoked map[string]bool
	err     error
}

func (s *stubBlacklist) AddToBlacklist(_ context.Context, jti string, _ time.Duration) error {
	s.revoked[jti] = true
	return nil
}

func (s *stubBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

func jwtRouter(cfg JWTMiddlewareConfig, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	if handler == nil {
		handler = func(c *gin.Context) { c.Status(http.StatusOK) }
	}
	router.GET("/v1/products", handler)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token, userID := issueToken(t, svc, "admin")

	var claims *auth.Claims
	var ctxUser string
	router := jwtRouter(DefaultJWTConfig(svc), func(c *gin.Context) {
		claims = GetJWTClaims(c)
		ctxUser = logger.GetUserID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := serve(router, http.MethodGet, "/v1/products", bearer(token))
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, userID.String(), ctxUser)
	assert.Equal(t, []string{"admin"}, claims.Roles)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	expired, _ := issueToken(t, newTestJWTService(-time.Minute))
	foreign, _ := issueToken(t, auth.NewJWTService(config.JWTConfig{
		Secret: "another-secret-key-at-least-32-chars", AccessTokenExpiration: time.Minute, Issuer: "test-issuer",
	}))

	tests := []struct {
		name   string
		mutate func(*http.Request)
		code   string
	}{
		{"missing header", nil, dto.ErrCodeUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set(AuthHeaderKey, "Basic abc") }, dto.ErrCodeUnauthorized},
		{"empty bearer", func(r *http.Request) { r.Header.Set(AuthHeaderKey, BearerPrefix) }, dto.ErrCodeUnauthorized},
		{"garbage", bearer("not-a-jwt"), dto.ErrCodeTokenInvalid},
		{"wrong signature", bearer(foreign), dto.ErrCodeTokenInvalid},
		{"expired", bearer(expired), dto.ErrCodeTokenExpired},
	}
	router := jwtRouter(DefaultJWTConfig(svc), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, "/v1/products", tt.mutate)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := jwtRouter(DefaultJWTConfig(newTestJWTService(time.Minute)), nil)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", nil).Code)
}

func TestJWTAuthMiddleware_Blacklist(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token, _ := issueToken(t, svc)
	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	t.Run("revoked token", func(t *testing.T) {
		bl := &stubBlacklist{revoked: map[string]bool{claims.ID: true}}
		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = bl

		w := serve(jwtRouter(cfg, nil), http.MethodGet, "/v1/products", bearer(token))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, w).Code)
	})

	t.Run("blacklist outage fails open", func(t *testing.T) {
		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = &stubBlacklist{revoked: map[string]bool{}, err: errors.New("redis down")}

		w := serve(jwtRouter(cfg, nil), http.MethodGet, "/v1/products", bearer(token))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
