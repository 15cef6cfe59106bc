package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 文本字段的默认截断上限
const (
	MaxNameLen    = 120
	MaxMessageLen = 3000
)

// Submission 表示一次留言提交，只在单个请求生命周期内存在，不落库
type Submission struct {
	Name       string // 留言者姓名，≤120 字符，可为空
	Message    string // 附言文本，≤3000 字符，可为空
	AudioBytes []byte // 音频文件内容
	MIMEType   string // 客户端声明的 MIME 类型，仅作参考
}

// StoredObject 表示已持久化到对象存储的音频文件
type StoredObject struct {
	Key         string `json:"key"`         // 调用方构造的存储键
	URL         string `json:"url"`         // 后端返回的公开访问地址
	ContentType string `json:"contentType"` // 与提交的 MIME 类型一致
}

// Receipt 表示一次提交的处理结果。
// 音频已持久化是 Receipt 存在的前提；EmailOK 只反映通知投递结果
type Receipt struct {
	URL        string // 存储对象的公开地址
	Key        string // 存储键
	EmailOK    bool   // 通知邮件是否投递成功
	EmailError string // 投递失败时的诊断信息，成功时为空
}

// SafeText 规范化用户输入文本：去除首尾空白并按字符数截断，
// 空输入返回空字符串
func SafeText(v string, max int) string {
	trimmed := strings.TrimSpace(v)
	runes := []rune(trimmed)
	if len(runes) > max {
		return string(runes[:max])
	}
	return trimmed
}

// PickExt 根据 MIME 类型推导文件扩展名。
// 识别 wav/ogg/webm，其余（含空值）一律回退到 webm
func PickExt(mime string) string {
	switch {
	case strings.Contains(mime, "wav"):
		return "wav"
	case strings.Contains(mime, "ogg"):
		return "ogg"
	default:
		return "webm"
	}
}

// BuildKey 生成存储键：<prefix>/voicemail-<毫秒时间戳>-<随机十六进制后缀>.<ext>。
// 随机后缀取自 UUID，同一毫秒内发生冲突的概率可以忽略
func BuildKey(prefix, ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/voicemail-%d-%s.%s", prefix, time.Now().UnixMilli(), suffix, ext)
}
