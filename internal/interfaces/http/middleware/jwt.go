package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backoffice/internal/infrastructure/auth"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Keys under which the authenticated caller is stored on the gin context
const (
	JWTClaimsKey = "jwt_claims"
	JWTUserIDKey = "jwt_user_id"
	JWTRolesKey  = "jwt_roles"
)

const (
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errNotBearer     = errors.New("authorization header is not a bearer token")
)

// JWTMiddlewareConfig configures JWTAuthMiddlewareWithConfig
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// TokenBlacklist is optional; when set, revoked JTIs are rejected
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths are served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig lets the health routes through and checks every other path
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/ready"},
		Logger:     zap.NewNop(),
	}
}

func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig authenticates the bearer token of each request
// and stores its claims on the context. Failures abort with 401.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		claims, err := authenticate(c, cfg)
		if err != nil {
			cfg.Logger.Warn("JWT authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)))
			code, message := authFailure(err)
			abortWithError(c, code, message)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTRolesKey, claims.Roles)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func authenticate(c *gin.Context, cfg JWTMiddlewareConfig) (*auth.Claims, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		return nil, errMissingHeader
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || token == "" {
		return nil, errNotBearer
	}

	claims, err := cfg.JWTService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if cfg.TokenBlacklist == nil || claims.ID == "" {
		return claims, nil
	}

	revoked, err := cfg.TokenBlacklist.IsBlacklisted(c.Request.Context(), claims.ID)
	if err != nil {
		// fail open so an unavailable blacklist does not lock out every caller
		cfg.Logger.Error("Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
		return claims, nil
	}
	if revoked {
		return nil, auth.ErrTokenBlacklisted
	}
	return claims, nil
}

// authFailure picks the error code a client sees for a rejected token
func authFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUserID):
		return dto.ErrCodeTokenInvalid, "Invalid token"
	default:
		return dto.ErrCodeUnauthorized, "Authentication required"
	}
}

// GetJWTClaims returns the authenticated caller, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(JWTClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

func GetJWTRoles(c *gin.Context) []string {
	return c.GetStringSlice(JWTRolesKey)
}
