package httptransport

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voicemail/backend/internal/config"
	"voicemail/backend/internal/domain"
	"voicemail/backend/internal/service"
)

// 解析 multipart 时保留在内存中的部分，超出的写入临时文件
const parseMemoryLimit = 4 << 20

// VoicemailHandler 留言提交处理器
type VoicemailHandler struct {
	svc    *service.VoicemailService
	cfg    *config.Config
	logger *zap.Logger
}

// NewVoicemailHandler 创建留言提交处理器
func NewVoicemailHandler(svc *service.VoicemailService, cfg *config.Config, logger *zap.Logger) *VoicemailHandler {
	return &VoicemailHandler{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}
}

// Submit 处理留言提交
//
// 流程：方法检查 → 凭证检查 → 解析表单 → 读取音频 → 上传并通知 → JSON 应答。
// 凭证检查在解析请求体之前进行，错误配置的部署不会白白消费整个上传
func (h *VoicemailHandler) Submit(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		JSONError(c, h.logger, http.StatusMethodNotAllowed, "method", "use POST", nil)
		return
	}

	// 凭证只报告存在与否，取值绝不出现在响应里
	hasBlob := h.cfg.Blob.Configured()
	hasResend := h.cfg.Email.Configured()
	if !hasBlob || !hasResend {
		JSONError(c, h.logger, http.StatusInternalServerError, "env-check",
			"missing required credential(s)",
			gin.H{"hasResend": hasResend, "hasBlob": hasBlob})
		return
	}

	// 文件上限是唯一的背压机制，在解析前约束整个请求体
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxBodyBytes())

	if err := c.Request.ParseMultipartForm(parseMemoryLimit); err != nil {
		JSONError(c, h.logger, http.StatusBadRequest, "form.parse", err, nil)
		return
	}
	form := c.Request.MultipartForm
	// 解析产生的临时文件交由运行时回收，大小已受上限约束

	// 字段可能解析为列表，取第一个
	audios := form.File["audio"]
	if len(audios) == 0 {
		JSONError(c, h.logger, http.StatusBadRequest, "no-audio",
			"no audio file found in form-data field 'audio'",
			gin.H{
				"fields":   sortedKeys(form.Value),
				"fileKeys": sortedKeys(form.File),
			})
		return
	}
	audio := audios[0]

	name := domain.SafeText(firstValue(form.Value["name"]), h.cfg.Upload.MaxNameLen)
	message := domain.SafeText(firstValue(form.Value["message"]), h.cfg.Upload.MaxMessageLen)
	mime := audio.Header.Get("Content-Type")

	file, err := audio.Open()
	if err != nil {
		JSONError(c, h.logger, http.StatusInternalServerError, "read-upload-tempfile", err, nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		JSONError(c, h.logger, http.StatusInternalServerError, "read-upload-tempfile", err, nil)
		return
	}

	// 请求体上限为表单开销留了余量，文件本身的上限在这里精确执行
	if int64(len(data)) > h.cfg.Upload.MaxFileSize {
		JSONError(c, h.logger, http.StatusBadRequest, "audio-too-large",
			fmt.Sprintf("audio file exceeds maximum size of %d bytes", h.cfg.Upload.MaxFileSize),
			gin.H{"limit": h.cfg.Upload.MaxFileSize, "size": len(data)})
		return
	}

	receipt, stageErr := h.svc.Submit(c.Request.Context(), &domain.Submission{
		Name:       name,
		Message:    message,
		AudioBytes: data,
		MIMEType:   mime,
	})
	if stageErr != nil {
		JSONError(c, h.logger, stageErr.Status, stageErr.Where, stageErr.Err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"url":        receipt.URL,
		"filename":   receipt.Key,
		"emailOk":    receipt.EmailOK,
		"emailError": receipt.EmailError,
	})
}

// sortedKeys 返回排序后的字段名列表，用于缺失字段时的诊断输出
func sortedKeys[V any](m map[string][]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// firstValue 取文本字段的第一个值，缺失时返回空字符串
func firstValue(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}
