package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/logger"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
)

// RequestID 为每个请求分配ID，客户端传入时沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 从上下文获取请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger 请求日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

// Recovery 捕获panic并返回统一错误
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogPanic(r, debug.Stack())
				Abort(c, apperrors.New(apperrors.ErrUnknown, fmt.Sprint(r)))
			}
		}()
		c.Next()
	}
}

// Abort 以统一格式返回错误并终止请求
func Abort(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err, apperrors.ErrUnknown)

	status := appErr.HTTPStatus()
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		logger.LogError(err, "请求处理失败",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c)))
	}

	c.AbortWithStatusJSON(status, apperrors.NewErrorResponse(appErr, GetRequestID(c)))
}
