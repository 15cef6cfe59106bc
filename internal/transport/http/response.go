package httptransport

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Detail 将任意失败值规范化为可读的诊断字符串。
// 回退顺序：error 消息 → 字符串本身 → JSON 序列化 → fmt 兜底
func Detail(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case error:
		return e.Error()
	case string:
		return e
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}

// JSONError 输出统一的失败响应：ok=false + 阶段标记 + 诊断信息。
// extra 中的字段原样并入响应体（如字段名列表、凭证存在性布尔值）
func JSONError(c *gin.Context, log *zap.Logger, status int, where string, errv any, extra gin.H) {
	detail := Detail(errv)

	log.Error("voicemail request failed",
		zap.String("where", where),
		zap.Int("status", status),
		zap.String("detail", detail),
	)

	body := gin.H{
		"ok":    false,
		"where": where,
		"error": detail,
	}
	for k, v := range extra {
		body[k] = v
	}

	c.JSON(status, body)
}
