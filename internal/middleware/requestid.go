package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey 请求上下文中保存请求标识的键
const RequestIDKey = "requestID"

// RequestID 为每个请求分配唯一标识，回显到 X-Request-ID 响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)

		c.Next()
	}
}
