package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// 中间件链的固定顺序：体积 → JSON 形态 → 认证 → 限流 → 业务处理。
// 顺序由 router 统一编排，这里只提供各环节。

const userIDContextKey = "user_id"

// BodySizeLimit 拒绝超过字节上限的请求体。
func (a *API) BodySizeLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > a.maxBody {
			respondError(c, http.StatusRequestEntityTooLarge, "request too large")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxBody)
		c.Next()
	}
}

// RequireJSON 要求携带请求体的方法必须声明 JSON 内容类型。
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
			c.Next()
			return
		}
		contentType := c.ContentType()
		if contentType != "application/json" {
			respondError(c, http.StatusBadRequest, "Content-Type must be application/json")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthRequired 校验 Bearer 访问令牌并把用户 ID 写入请求上下文。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, http.StatusUnauthorized, "missing access token")
			c.Abort()
			return
		}

		userID, err := a.tokens.ParseAccess(strings.TrimSpace(token))
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired access token")
			c.Abort()
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// RateLimit 以认证身份（退而求其次用客户端 IP）为键执行每路由配额。
func (a *API) RateLimit(route string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.limiter == nil {
			c.Next()
			return
		}

		identity := c.ClientIP()
		if userID, ok := currentUserID(c); ok {
			identity = fmt.Sprintf("user:%d", userID)
		}

		key := fmt.Sprintf("rl:%s:%s", route, identity)
		result := a.limiter.Allow(c.Request.Context(), key, limit, window)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":               "rate limit exceeded",
				"retry_after_seconds": retryAfter,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
