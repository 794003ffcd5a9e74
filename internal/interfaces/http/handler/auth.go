package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backoffice/internal/infrastructure/auth"
	"github.com/shopdesk/backoffice/internal/infrastructure/logger"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
	"github.com/shopdesk/backoffice/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// AuthHandler serves the session endpoints. Tokens are issued by the identity
// service; the back office only revokes and introspects them.
type AuthHandler struct {
	BaseHandler
	blacklist auth.TokenBlacklist
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(blacklist auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{blacklist: blacklist}
}

// LogoutResponse confirms a revoked token
type LogoutResponse struct {
	Message   string    `json:"message"`
	RevokedAt time.Time `json:"revoked_at"`
}

// CurrentUserResponse describes the caller as seen in the token
type CurrentUserResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Logout godoc
// @Summary      Revoke the presented token
// @Description  Blacklists the token's jti until it would have expired
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=LogoutResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if claims.ID == "" {
		h.BadRequest(c, "Token carries no jti and cannot be revoked")
		return
	}

	if ttl := claims.RemainingTTL(); ttl > 0 {
		if err := h.blacklist.AddToBlacklist(c.Request.Context(), claims.ID, ttl); err != nil {
			logger.L(c.Request.Context()).Error("Failed to revoke token", zap.String("jti", claims.ID), zap.Error(err))
			h.ErrorWithCode(c, dto.ErrCodeServiceUnavailable, "Token revocation is unavailable")
			return
		}
	}

	h.Success(c, LogoutResponse{Message: "Logged out successfully", RevokedAt: time.Now().UTC()})
}

// Me godoc
// @Summary      Describe the caller
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=CurrentUserResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	resp := CurrentUserResponse{
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    claims.Roles,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	h.Success(c, resp)
}
