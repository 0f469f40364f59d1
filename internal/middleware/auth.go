package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/utils"
)

const (
	userIDKey = "userID"
	tokenKey  = "token"
)

// TokenValidator 令牌校验
type TokenValidator interface {
	ValidateToken(token string) (*utils.JWTClaims, error)
}

// Auth JWT认证中间件，用户由宿主应用签发的令牌确定
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			Abort(c, apperrors.New(apperrors.ErrAuthentication, "缺少认证令牌"))
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			code := apperrors.ErrTokenInvalid
			if errors.Is(err, utils.ErrExpiredToken) {
				code = apperrors.ErrTokenExpired
			}
			Abort(c, apperrors.Wrap(err, code))
			return
		}

		c.Set(userIDKey, claims.User())
		c.Set(tokenKey, token)

		c.Next()
	}
}

// extractToken 从请求中提取令牌
func extractToken(c *gin.Context) string {
	// 1. 从Authorization Header获取 (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. 从X-Access-Token Header获取
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. 从Query参数获取（浏览器WebSocket无法设置Header）
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) (string, bool) {
	if userID, exists := c.Get(userIDKey); exists {
		if id, ok := userID.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// IsAuthenticated 检查是否已认证
func IsAuthenticated(c *gin.Context) bool {
	_, ok := GetUserID(c)
	return ok
}
