package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/models"
)

const principalKey = "principal"

type Authenticator interface {
	Authenticate(token string) (auth.Principal, error)
}

// Authenticate requires a valid bearer token and stores the principal on the context.
func Authenticate(tokens Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			abort(c, apperrors.Clone(apperrors.ErrUnauthenticated, "missing bearer token"))
			return
		}
		p, err := tokens.Authenticate(token)
		if err != nil {
			abort(c, apperrors.FromError(err))
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRoles rejects principals outside roles with 403.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			abort(c, apperrors.Clone(apperrors.ErrUnauthenticated, ""))
			return
		}
		if !auth.Authorize(p, roles...) {
			abort(c, apperrors.Clone(apperrors.ErrForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func abort(c *gin.Context, e *apperrors.Error) {
	c.AbortWithStatusJSON(e.Status, gin.H{"error": e.Message, "code": e.Code})
}
