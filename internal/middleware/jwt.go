package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedlab/internal/pkg/errcode"
	"github.com/xxxsen/embedlab/internal/pkg/jwt"
	"github.com/xxxsen/embedlab/internal/pkg/response"
)

const ContextSubjectKey = "subject"

// IngestAuth guards routes that write collections. With no secret the
// routes are closed unless allowAnonymous is set.
func IngestAuth(secret []byte, allowAnonymous bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			if allowAnonymous {
				c.Next()
				return
			}
			response.Error(c, errcode.ErrUploadDisabled, "ingestion is disabled")
			c.Abort()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(strings.TrimSpace(parts[1]), secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		if claims.Scope != jwt.ScopeIngest {
			response.Error(c, errcode.ErrForbidden, "token scope does not allow ingestion")
			c.Abort()
			return
		}
		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}
