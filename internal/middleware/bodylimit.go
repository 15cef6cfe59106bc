package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// BodySizeLimit 限制请求体大小的中间件。
// 声明了超限 Content-Length 的请求直接拒绝；
// 未声明长度的请求由 MaxBytesReader 在读取时截断
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"ok":    false,
				"where": "body-limit",
				"error": fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
				"limit": maxBytes,
				"size":  c.Request.ContentLength,
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Header("X-Max-Body-Size", strconv.FormatInt(maxBytes, 10))

		c.Next()
	}
}
