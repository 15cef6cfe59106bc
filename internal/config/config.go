package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// UploadConfig 定义留言上传的限制参数
type UploadConfig struct {
	MaxFileSize   int64  // 音频文件大小上限（字节），默认 25 MiB
	MaxNameLen    int    // 姓名字段截断长度，默认 120
	MaxMessageLen int    // 附言字段截断长度，默认 3000
	KeyPrefix     string // 存储键前缀，默认 "voicemails"
}

// multipart 边界与文本字段在文件上限之外占用的预留空间
const formOverhead = 512 * 1024

// MaxBodyBytes 返回整个请求体的大小上限（文件上限加表单开销）
func (u UploadConfig) MaxBodyBytes() int64 {
	return u.MaxFileSize + formOverhead
}

// BlobConfig 定义对象存储后端配置
type BlobConfig struct {
	Backend  string // 后端类型: "vercel"、"filesystem" 或 "memory"
	Token    string // Vercel Blob 读写令牌（vercel 后端必需）
	Endpoint string // Blob API 地址，默认官方端点
	Path     string // filesystem 后端的存储根目录
	BaseURL  string // filesystem 后端对外暴露的 URL 前缀
}

// Configured 报告存储凭证是否就绪，只返回布尔值，绝不暴露取值
func (b BlobConfig) Configured() bool {
	switch b.Backend {
	case "filesystem":
		return b.Path != ""
	case "memory":
		return true
	default:
		return b.Token != ""
	}
}

// EmailConfig 定义通知邮件的发送配置
type EmailConfig struct {
	Provider      string // 发送通道: "resend" 或 "smtp"
	APIKey        string // Resend API 密钥（resend 通道必需）
	SMTPAddr      string // SMTP 中继地址，格式 "host:port"
	SMTPUsername  string // SMTP 认证用户名，留空表示匿名
	SMTPPassword  string // SMTP 认证密码
	From          string // 发件人地址
	To            string // 收件人地址
	SubjectPrefix string // 邮件主题前缀
}

// Configured 报告邮件凭证是否就绪，只返回布尔值，绝不暴露取值
func (e EmailConfig) Configured() bool {
	switch e.Provider {
	case "smtp":
		return e.SMTPAddr != ""
	default:
		return e.APIKey != ""
	}
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 彩色控制台输出
	File        string // 日志文件路径，留空只输出到 stdout
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server ServerConfig // HTTP 服务器配置
	Upload UploadConfig // 上传限制配置
	Blob   BlobConfig   // 对象存储配置
	Email  EmailConfig  // 通知邮件配置
	CORS   CORSConfig   // 跨域配置
	Log    LogConfig    // 日志配置
}

// 未显式配置时使用的通知收发地址
const (
	DefaultTo   = "moremorgellons@gmail.com"
	DefaultFrom = "onboarding@resend.dev"
)

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: VOICEMAIL_
// 例如: VOICEMAIL_SERVER_PORT, VOICEMAIL_BLOB_BACKEND
//
// 另外绑定历史变量名（与旧部署兼容）：
// BLOB_READ_WRITE_TOKEN, RESEND_API_KEY, VOICEMAIL_TO, VOICEMAIL_FROM
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("voicemail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 历史环境变量名绑定
	viper.BindEnv("blob.token", "VOICEMAIL_BLOB_TOKEN", "BLOB_READ_WRITE_TOKEN")
	viper.BindEnv("email.api_key", "VOICEMAIL_EMAIL_API_KEY", "RESEND_API_KEY")
	viper.BindEnv("email.to", "VOICEMAIL_EMAIL_TO", "VOICEMAIL_TO")
	viper.BindEnv("email.from", "VOICEMAIL_EMAIL_FROM", "VOICEMAIL_FROM")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("upload.max_file_size", 25*1024*1024)
	viper.SetDefault("upload.max_name_len", 120)
	viper.SetDefault("upload.max_message_len", 3000)
	viper.SetDefault("upload.key_prefix", "voicemails")
	viper.SetDefault("blob.backend", "vercel")
	viper.SetDefault("blob.endpoint", "https://blob.vercel-storage.com")
	viper.SetDefault("blob.path", "./data/voicemail-storage")
	viper.SetDefault("blob.base_url", "/blobs")
	viper.SetDefault("email.provider", "resend")
	viper.SetDefault("email.to", DefaultTo)
	viper.SetDefault("email.from", DefaultFrom)
	viper.SetDefault("email.subject_prefix", "New More Morgellons Voicemail")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")

	maxFileSize := viper.GetInt64("upload.max_file_size")
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("upload.max_file_size must be positive")
	}

	keyPrefix := strings.Trim(viper.GetString("upload.key_prefix"), "/")
	if keyPrefix == "" {
		return nil, fmt.Errorf("upload.key_prefix must not be empty")
	}

	backend := strings.ToLower(viper.GetString("blob.backend"))
	switch backend {
	case "vercel", "filesystem", "memory":
	default:
		return nil, fmt.Errorf("unknown blob.backend %q (expected vercel, filesystem or memory)", backend)
	}

	provider := strings.ToLower(viper.GetString("email.provider"))
	switch provider {
	case "resend", "smtp":
	default:
		return nil, fmt.Errorf("unknown email.provider %q (expected resend or smtp)", provider)
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Upload: UploadConfig{
			MaxFileSize:   maxFileSize,
			MaxNameLen:    viper.GetInt("upload.max_name_len"),
			MaxMessageLen: viper.GetInt("upload.max_message_len"),
			KeyPrefix:     keyPrefix,
		},
		Blob: BlobConfig{
			Backend:  backend,
			Token:    viper.GetString("blob.token"),
			Endpoint: strings.TrimRight(viper.GetString("blob.endpoint"), "/"),
			Path:     viper.GetString("blob.path"),
			BaseURL:  strings.TrimRight(viper.GetString("blob.base_url"), "/"),
		},
		Email: EmailConfig{
			Provider:      provider,
			APIKey:        viper.GetString("email.api_key"),
			SMTPAddr:      viper.GetString("email.smtp_addr"),
			SMTPUsername:  viper.GetString("email.smtp_username"),
			SMTPPassword:  viper.GetString("email.smtp_password"),
			From:          viper.GetString("email.from"),
			To:            viper.GetString("email.to"),
			SubjectPrefix: viper.GetString("email.subject_prefix"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从子目录运行的情况）
//
// 已存在的环境变量不会被覆盖
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
