package smtp

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"voicemail/backend/internal/notify"
)

// Mailer 通过外部 SMTP 中继发送通知邮件，
// 供没有 Resend 账号、自带邮件中继的部署使用
type Mailer struct {
	addr     string // 中继地址，格式 "host:port"
	username string // 认证用户名，留空表示匿名投递
	password string
}

// NewMailer 创建 SMTP 发送器
func NewMailer(addr, username, password string) *Mailer {
	return &Mailer{
		addr:     addr,
		username: username,
		password: password,
	}
}

// Send 通过中继投递单封邮件。
// go-smtp 的客户端调用不接受 context，这里只在拨号前检查取消状态
func (m *Mailer) Send(ctx context.Context, email *notify.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth sasl.Client
	if m.username != "" {
		auth = sasl.NewPlainClient("", m.username, m.password)
	}

	msg := buildMessage(email)
	if err := gosmtp.SendMail(m.addr, auth, email.From, []string{email.To}, strings.NewReader(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// 头部值里的回车换行会截断头部行，替换为空格
var headerSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

// buildMessage 组装带 HTML 正文的 MIME 消息。
// 主题可能包含用户提交的姓名，所有头部值写入前先做净化，
// 防止提交内容向消息注入额外头部（如 Bcc）
func buildMessage(email *notify.Email) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerSanitizer.Replace(email.From))
	fmt.Fprintf(&b, "To: %s\r\n", headerSanitizer.Replace(email.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSanitizer.Replace(email.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(email.HTML)
	b.WriteString("\r\n")
	return b.String()
}
