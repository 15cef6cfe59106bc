package notify

import "context"

// Email 一封待发送的通知邮件
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer 定义事务邮件发送操作。
// 发送失败由调用方决定是否致命，接口本身不做重试
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}
