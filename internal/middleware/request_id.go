package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	HeaderRequestID     = "X-Request-Id"
	ContextRequestIDKey = "request_id"
)

// RequestID tags each request with an id, reusing the caller's header
// when present, and logs the request once it completes.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" || len(reqID) > 64 {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
		logutil.GetLogger(c.Request.Context()).Debug("request done",
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
