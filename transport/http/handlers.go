package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tollgate/core"
	"github.com/layer-3/tollgate/service"
	"github.com/rs/zerolog"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	now         func() time.Time
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		now:         time.Now,
	}
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": core.CodeInvalid})
		case errors.Is(err, core.ErrStoreUnavailable):
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("login failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		default:
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": res.Token,
		"token_type":   res.TokenType,
		"expires_in":   res.ExpiresIn(h.now()),
		"expires_at":   res.ExpiresAt.Unix(),
	})
}

// Logout ends the session of the bearer token. Unknown or idle-expired sessions log out fine.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := service.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": core.CodeMissing})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		switch {
		case errors.Is(err, core.ErrMalformedToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": core.CodeInvalid})
		case errors.Is(err, core.ErrStoreUnavailable):
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("logout failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		default:
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("logout failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns information about the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, identityJSON(identity))
}

// Authorize answers forward-auth checks from a reverse proxy. Reaching the
// handler means the gate already allowed the request.
func (h *AuthHandlers) Authorize(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not found in context"})
		return
	}

	c.Header("X-Auth-Subject", identity.Subject)
	c.Header("X-Auth-Role", identity.Role())
	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"subject":    identity.Subject,
	})
}

// User returns the user reference for :id. It is guarded by the self-or-admin policy;
// profile data lives in the external user directory.
func (h *AuthHandlers) User(c *gin.Context) {
	identity, _ := IdentityFrom(c)

	c.JSON(http.StatusOK, gin.H{
		"id":           c.Param("id"),
		"requested_by": identity.Subject,
	})
}

// Session reports whether the session of :tokenId is live without refreshing it
func (h *AuthHandlers) Session(c *gin.Context) {
	tokenID := c.Param("tokenId")

	sess, found, err := h.authService.SessionStatus(c.Request.Context(), tokenID)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("session lookup failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"token_id": tokenID, "live": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token_id":       tokenID,
		"live":           true,
		"subject":        sess.Subject,
		"idle_remaining": int64(sess.IdleTTL / time.Second),
	})
}

func identityJSON(identity core.Identity) gin.H {
	return gin.H{
		"subject":    identity.Subject,
		"token_id":   identity.TokenID,
		"name":       identity.Claims.Name,
		"email":      identity.Claims.Email,
		"role":       identity.Claims.Role,
		"issued_at":  identity.IssuedAt.Unix(),
		"expires_at": identity.ExpiresAt.Unix(),
	}
}
