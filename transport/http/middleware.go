package http

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tollgate/core"
	"github.com/layer-3/tollgate/service"
	"github.com/rs/zerolog"
)

// CodeForbidden is returned when an authenticated identity fails a policy
const CodeForbidden = "auth.forbidden"

const identityKey = "identity"

// AuthMiddleware creates middleware that authenticates every request outside the open paths.
// A rejected request is answered with 401 and the reason's wire code only.
func AuthMiddleware(authService *service.AuthService, openPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isOpenPath(c.Request.URL.Path, openPaths) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		identity, rej := authService.Authenticate(ctx, c.GetHeader("Authorization"))
		if rej != nil {
			zerolog.Ctx(ctx).Debug().Str("reason", rej.Reason.String()).Msg("request rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": rej.Reason.Code()})
			return
		}

		c.Request = c.Request.WithContext(core.WithIdentity(ctx, identity))
		c.Set(identityKey, identity)

		c.Next()
	}
}

// RequirePolicy denies requests whose identity is not allowed to access the
// resource selected by resourceFn.
func RequirePolicy(policy core.Policy, resourceFn func(*gin.Context) core.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.CodeMissing})
			return
		}

		var res core.Resource
		if resourceFn != nil {
			res = resourceFn(c)
		}

		if !core.CanAccess(identity, res, policy) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": CodeForbidden})
			return
		}

		c.Next()
	}
}

// OwnerParam selects the resource owner from a path parameter
func OwnerParam(name string) func(*gin.Context) core.Resource {
	return func(c *gin.Context) core.Resource {
		return core.Resource{OwnerSubject: c.Param(name)}
	}
}

// IdentityFrom returns the identity authenticated for this request
func IdentityFrom(c *gin.Context) (core.Identity, bool) {
	return core.IdentityFromContext(c.Request.Context())
}

// isOpenPath matches p against the allow-list on path segment boundaries
func isOpenPath(p string, openPaths []string) bool {
	p = path.Clean("/" + p)
	for _, open := range openPaths {
		if open == "" {
			continue
		}
		if strings.HasSuffix(open, "/") {
			if strings.HasPrefix(p+"/", open) {
				return true
			}
			continue
		}
		if p == open || strings.HasPrefix(p, open+"/") {
			return true
		}
	}
	return false
}
