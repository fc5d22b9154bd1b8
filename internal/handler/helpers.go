package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedlab/internal/middleware"
	"github.com/xxxsen/embedlab/internal/pkg/errcode"
	"github.com/xxxsen/embedlab/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, msg := errcode.FromError(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("code", code),
		zap.Error(err),
	)
	if code == errcode.ErrInternal {
		logger.Error("request failed")
	} else {
		logger.Warn("request failed")
	}
	response.Error(c, code, msg)
}

func badRequest(c *gin.Context, msg string) {
	response.Error(c, errcode.ErrInvalid, msg)
}
