package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"mecanix/internal/core/apperror"
	"mecanix/internal/core/reqctx"
)

// TokenValidator turns a bearer token into an actor.
type TokenValidator interface {
	ValidateToken(tokenString string) (*reqctx.Actor, error)
}

// Auth middleware validates bearer tokens and puts the actor on the
// request context. The role gate downstream relies on that actor.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		actor, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := reqctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)

		c.Set("subject_id", actor.SubjectID)
		c.Set("role", string(actor.Role))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
