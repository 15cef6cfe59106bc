package resend

import (
	"context"
	"fmt"

	resendsdk "github.com/resend/resend-go/v2"

	"voicemail/backend/internal/notify"
)

// Mailer 通过 Resend API 发送通知邮件
type Mailer struct {
	client *resendsdk.Client
}

// NewMailer 创建 Resend 发送器
func NewMailer(apiKey string) *Mailer {
	return &Mailer{
		client: resendsdk.NewClient(apiKey),
	}
}

// Send 发送单封邮件，不重试
func (m *Mailer) Send(ctx context.Context, email *notify.Email) error {
	params := &resendsdk.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	}

	if _, err := m.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
